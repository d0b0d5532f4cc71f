package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessContainsCheckmark(t *testing.T) {
	result := Success("application deployed")
	assert.Contains(t, result, "✓")
	assert.Contains(t, result, "application deployed")
}

func TestWarnContainsWarningSign(t *testing.T) {
	result := Warn("balance below minimum")
	assert.Contains(t, result, "⚠")
	assert.Contains(t, result, "balance below minimum")
}

func TestErrContainsCross(t *testing.T) {
	result := Err("transaction rejected")
	assert.Contains(t, result, "✗")
	assert.Contains(t, result, "transaction rejected")
}

func TestInfoContainsInfoSign(t *testing.T) {
	result := Info("dry-run context written")
	assert.Contains(t, result, "ℹ")
	assert.Contains(t, result, "dry-run context written")
}

func TestHintContainsMessage(t *testing.T) {
	result := Hint("use --group to capture a full group")
	assert.Contains(t, result, "use --group to capture a full group")
}

func TestAddrContainsAddress(t *testing.T) {
	addr := "CVMQX7K3NABCDEF"
	result := Addr(addr)
	assert.Contains(t, result, addr)
}

func TestValContainsValue(t *testing.T) {
	result := Val("1.500000")
	assert.Contains(t, result, "1.500000")
}

func TestMetaContainsText(t *testing.T) {
	result := Meta("round 42")
	assert.Contains(t, result, "round 42")
}

func TestAppNameContainsName(t *testing.T) {
	result := AppName("counter")
	assert.Contains(t, result, "counter")
}

func TestAllFormattersReturnNonEmpty(t *testing.T) {
	formatters := map[string]func(string) string{
		"Success": Success,
		"Warn":    Warn,
		"Err":     Err,
		"Info":    Info,
		"Hint":    Hint,
		"Addr":    Addr,
		"Val":     Val,
		"Meta":    Meta,
		"AppName": AppName,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, fn("test"))
		})
	}
}

func TestTruncateAddrShortensLongAddress(t *testing.T) {
	addr := "CVMQX7K3NAWPLZQJ4RDT6YBHFM2SXUEG"
	assert.Equal(t, "CVMQX7…XUEG", TruncateAddr(addr))
}

func TestTruncateAddrLeavesShortAddressAlone(t *testing.T) {
	assert.Equal(t, "CVMQX7K3NAWP", TruncateAddr("CVMQX7K3NAWP"))
	assert.Equal(t, "abc", TruncateAddr("abc"))
	assert.Equal(t, "", TruncateAddr(""))
}
