package cmd

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Generate an Argon2id hash for an ingress token",
	Long: `Generate an Argon2id hash of an ingress token for use in config.

The output is a PHC-format hash prefixed "argon2id:", which can be placed
directly in ingress.tokens instead of the raw token.

Example:
  aigatewayd hash-token "my-secret-token"
  # Output: argon2id:$argon2id$v=19$...

Security note: the token will appear in shell history. Consider clearing
history after use, or pass it via an environment variable:
  aigatewayd hash-token "$MY_TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		fmt.Printf("argon2id:%s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashTokenCmd)
}
