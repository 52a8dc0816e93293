package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/database"
	"github.com/mrlokans/gatekeeper/internal/entities"
)

// passwordEnv lets scripts pass the password without exposing it in ps.
const passwordEnv = "GATEKEEPER_PASSWORD"

type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	DatabasePath string
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Long: `Create a user account directly in the database.

The password is read from --password or the ` + passwordEnv + ` environment variable.`,
		Example: "  gatekeeper create-user --username alice --email alice@example.com --role admin",
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if cmd.Password == "" {
				cmd.Password = os.Getenv(passwordEnv)
			}
			return cmd.Run(config.NewConfig(), c.OutOrStdout())
		},
	}

	c.Flags().StringVar(&cmd.Username, "username", "", "Username (required)")
	c.Flags().StringVar(&cmd.Email, "email", "", "Email address (required)")
	c.Flags().StringVar(&cmd.Password, "password", "", "Password, at least 12 characters")
	c.Flags().StringVar(&cmd.Role, "role", string(entities.UserRoleViewer), "Role: admin, editor or viewer")
	c.Flags().StringVar(&cmd.DatabasePath, "db", "", "Database path (defaults to DATABASE_PATH)")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("email")

	return c
}

func (cmd *CreateUserCommand) Run(cfg *config.Config, out io.Writer) error {
	if cmd.Password == "" {
		return errors.New("password is required (--password or " + passwordEnv + ")")
	}

	dbPath := cmd.DatabasePath
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}

	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(db.DB, cfg.Auth)
	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "Created %s user %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
