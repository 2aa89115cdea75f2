package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/siteops-service/internal/tools/common"
	"github.com/sandeepkv93/siteops-service/internal/tools/opsctl"
)

func main() {
	if err := opsctl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(common.ExitConfigError)
	}
}
