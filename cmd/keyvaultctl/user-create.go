package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/db"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/password"
	gormstore "github.com/doodlesbykumbi/keyvault/pkg/server/store/gorm"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user account",
	Long: `Create a user account, optionally with the global admin role.

Registration over the API only ever creates regular users, so the first
admin is bootstrapped with this command. The password is read from the
first line of stdin.

Example:
  echo "$ADMIN_PASSWORD" | keyvaultctl user create admin --email admin@example.com --admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		fullName, _ := cmd.Flags().GetString("full-name")
		admin, _ := cmd.Flags().GetBool("admin")

		plaintext, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}

		user, err := createUser(cmd.Context(), args[0], email, fullName, plaintext, admin)
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("email", "", "email address (required)")
	userCreateCmd.Flags().String("full-name", "", "display name")
	userCreateCmd.Flags().Bool("admin", false, "grant the global admin role")
	_ = userCreateCmd.MarkFlagRequired("email")
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return line, nil
}

func createUser(ctx context.Context, username, email, fullName, plaintext string, admin bool) (*model.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	hashed, err := password.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(db.Config{URL: config.DatabaseURL()})
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close(database) }()

	user := &model.User{
		Username: username,
		Password: hashed,
		Email:    email,
		FullName: fullName,
		Role:     model.GlobalRoleUser,
	}
	if admin {
		user.Role = model.GlobalRoleAdmin
	}

	users := gormstore.NewUsersStore(database)
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	recorder := activity.NewRecorder(
		gormstore.NewActivityStore(database),
		users,
		gormstore.NewProjectsStore(database),
		gormstore.NewSecretsStore(database),
	)
	if _, err := recorder.Record(ctx, user.ID, model.ActionCreated, model.ResourceUser, user.ID, "created by keyvaultctl"); err != nil {
		return nil, err
	}
	return user, nil
}

