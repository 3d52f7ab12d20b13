package main

import (
    "log"

    "github.com/spf13/cobra"

    seedcli "github.com/amirimatin/go-seeder/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "seedctl",
        Short:         "peer address seeder",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    seedcli.AddAll(root)
    return root
}
