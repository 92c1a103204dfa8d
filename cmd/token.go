package cmd

import (
	"fmt"

	"rentledger-backend/utils"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a staff member",
	Long: `Issue a signed JWT for calling the API. The token is signed with
JWT_SECRET and expires after JWT_EXPIRY_HOURS (default 24).`,
	Example: `  rentledger token --user 17 --role staff
  rentledger token --new-secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		newSecret, _ := cmd.Flags().GetBool("new-secret")
		if newSecret {
			fmt.Println(utils.GenerateJWTSecret())
			return nil
		}

		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		switch role {
		case utils.RoleAdmin, utils.RoleStaff, utils.RoleRenter:
		default:
			return fmt.Errorf("unknown role %q", role)
		}

		token, err := utils.GenerateToken(userID, role)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("user", "", "User id stored in the token subject")
	tokenCmd.Flags().String("role", utils.RoleStaff, "Role: admin, staff or renter")
	tokenCmd.Flags().Bool("new-secret", false, "Print a random value suitable for JWT_SECRET and exit")
}
