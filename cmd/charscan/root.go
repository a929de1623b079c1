package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for charscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charscan",
		Short: "Audit web pages for a character encoding declaration",
		Long: `charscan checks whether web pages declare their character encoding.

A page passes when its main document response has a Content-Type header with
a charset parameter, starts with a byte-order mark, or contains a <meta>
charset declaration within its first 1024 characters.

Pages can be fetched directly, through a SOCKS5 proxy or an embedded Tor
daemon (required for .onion sites), or read from a recorded HAR network log
or a local file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
