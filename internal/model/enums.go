package model

import (
	"fmt"
	"strings"
)

// UseCodeResult is the outcome of a redemption attempt.
type UseCodeResult uint8

const (
	UseCodeSuccess UseCodeResult = iota
	UseCodeNotFound
	UseCodeAlreadyUsed
	UseCodeInvalidFormat
)

var useCodeResultNames = map[UseCodeResult]string{
	UseCodeSuccess:       "success",
	UseCodeNotFound:      "notFound",
	UseCodeAlreadyUsed:   "alreadyUsed",
	UseCodeInvalidFormat: "invalidFormat",
}

func (r UseCodeResult) String() string {
	if name, ok := useCodeResultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("UseCodeResult(%d)", uint8(r))
}

func (r UseCodeResult) MarshalText() ([]byte, error) {
	name, ok := useCodeResultNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown use code result %d", uint8(r))
	}
	return []byte(name), nil
}

// UnmarshalText accepts the camelCase name in any letter case, so "AlreadyUsed"
// and "alreadyUsed" decode alike.
func (r *UseCodeResult) UnmarshalText(text []byte) error {
	for value, name := range useCodeResultNames {
		if strings.EqualFold(name, string(text)) {
			*r = value
			return nil
		}
	}
	return fmt.Errorf("unknown use code result %q", string(text))
}
