package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/example/court-scheduler/internal/auth"
	"github.com/spf13/cobra"
)

func newHashPasswordCmd() *cobra.Command {
	var password string
	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an OPERATOR_PASSWORD_BCRYPT value for the console login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("empty password")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export OPERATOR_PASSWORD_BCRYPT='%s'\n", hash)
			return nil
		},
	}
	c.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return c
}
