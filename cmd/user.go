package cmd

import (
	"fmt"

	"college-records/internal/config"
	"college-records/internal/domain/user"
	"college-records/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	newUsername string
	newPassword string
	newRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Create an API account directly in the store. Use it to bootstrap the first
admin; later accounts can be created through POST /api/v1/admin/users.`,
	RunE: runUserCreate,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "Login name")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "Password (at least 8 characters)")
	userCreateCmd.Flags().StringVar(&newRole, "role", string(user.RoleAdmin), "admin, teacher or student")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), config.Get(), false)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		return err
	}
	defer a.Close()

	account, err := a.credentials.CreateUser(cmd.Context(), &user.CreateUserRequest{
		Username: newUsername,
		Password: newPassword,
		Role:     newRole,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created %s account %s (%s)\n", account.Role, account.Username, account.ID)
	return nil
}
