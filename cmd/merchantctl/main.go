// merchantctl manages the merchant catalogue: extraction, import and offline checks.
package main

import (
	"os"

	"telegram-affiliate-bot/cmd/merchantctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
