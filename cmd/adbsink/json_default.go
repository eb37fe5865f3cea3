//go:build !sonic

package main

import (
	"github.com/goccy/go-json"
)

func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
