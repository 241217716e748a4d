package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIptablesRuleArgs(t *testing.T) {
	args := iptablesRuleArgs("filter", IptablesParams{
		Protocol:        "tcp",
		DestinationPort: "80",
		Jump:            "ACCEPT",
	})
	assert.Equal(t, []string{"-p", "tcp", "--dport", "80", "-j", "ACCEPT"}, args)
}

func TestIptablesRuleArgs_Ctstate(t *testing.T) {
	args := iptablesRuleArgs("filter", IptablesParams{
		Ctstate: "ESTABLISHED,RELATED",
		Jump:    "ACCEPT",
	})
	assert.Equal(t, []string{"-m", "conntrack", "--ctstate", "ESTABLISHED,RELATED", "-j", "ACCEPT"}, args)
}

func TestIptablesRuleArgs_Empty(t *testing.T) {
	args := iptablesRuleArgs("filter", IptablesParams{})
	assert.Empty(t, args)
}

func TestIptablesModule_MissingChainIsError(t *testing.T) {
	m := NewIptablesModule()
	_, _, err := m.Exec(nil, nil, map[string]any{}, nil, false)
	assert.Error(t, err)
}
