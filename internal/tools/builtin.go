package tools

import "strings"

// Builtins returns the reference tool set.
func Builtins() []Tool {
	return []Tool{
		{
			Name:        "uppercase",
			Description: "Return text in upper case",
			Transform: func(text string) (string, error) {
				return strings.ToUpper(text), nil
			},
		},
		{
			Name:        "excited",
			Description: "Append an exclamation mark to text",
			Transform: func(text string) (string, error) {
				return text + "!", nil
			},
		},
	}
}
