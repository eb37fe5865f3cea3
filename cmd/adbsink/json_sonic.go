//go:build sonic

package main

import (
	"github.com/bytedance/sonic"
)

func marshalJSON(v any) ([]byte, error) {
	return sonic.ConfigDefault.MarshalIndent(v, "", "  ")
}
