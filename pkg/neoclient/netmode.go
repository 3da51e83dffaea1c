package neoclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
)

// ParseChainID converts chain identifier (network name or magic number) into
// network magic. Empty string means "any network" and returns zero.
func ParseChainID(id string) (netmode.Magic, error) {
	switch strings.ToLower(id) {
	case "":
		return 0, nil
	case "mainnet":
		return netmode.MainNet, nil
	case "testnet":
		return netmode.TestNet, nil
	case "privnet":
		return netmode.PrivNet, nil
	case "unit_testnet", "unittest":
		return netmode.UnitTestNet, nil
	}
	m, err := strconv.ParseUint(id, 0, 32)
	if err != nil || m == 0 {
		return 0, fmt.Errorf("invalid chain id %q", id)
	}
	return netmode.Magic(m), nil
}
