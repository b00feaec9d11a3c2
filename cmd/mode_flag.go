package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// modeValue is a pflag.Value accepting "global" or "local".
type modeValue string

var _ pflag.Value = (*modeValue)(nil)

func (m *modeValue) String() string { return string(*m) }

func (m *modeValue) Set(s string) error {
	switch v := strings.ToLower(s); v {
	case "global", "local":
		*m = modeValue(v)
		return nil
	default:
		return fmt.Errorf("must be global or local, got %q", s)
	}
}

func (m *modeValue) Type() string { return "mode" }
