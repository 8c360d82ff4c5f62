package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/admin-trust-core/internal/tools/trustcore"
)

func main() {
	if err := trustcore.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
