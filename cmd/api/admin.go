package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/user"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			v, err := e.db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", e.db.Dialect, v)
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load warehouse locations and staging spots",
		Long: `Upserts the warehouse location and its spots from a layout file.
Without --layout or SPOT_LAYOUT_FILE the built-in layout is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			if layoutPath == "" {
				layoutPath = e.cfg.Layout.SpotsFile
			}
			var layout *location.Layout
			if layoutPath != "" {
				layout, err = location.LoadLayout(layoutPath)
			} else {
				layout, err = location.DefaultLayout()
			}
			if err != nil {
				return err
			}

			res, err := location.NewService(location.NewRepository(e.db), e.log).Seed(cmd.Context(), layout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locations created: %d, spots inserted: %d, spots updated: %d\n",
				res.LocationsCreated, res.SpotsInserted, res.SpotsUpdated)
			return nil
		},
	}

	cmd.Flags().StringVar(&layoutPath, "layout", "", "path to a layout YAML file")
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage warehouse users",
	}
	cmd.AddCommand(newUserAddCommand())
	return cmd
}

func newUserAddCommand() *cobra.Command {
	var (
		username string
		fullName string
		pin      string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user that signs in with a PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			u, err := user.NewService(user.NewRepository(e.db)).CreateUser(cmd.Context(), user.CreateUserRequest{
				Username: username,
				FullName: fullName,
				PIN:      pin,
				Role:     user.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&fullName, "name", "", "display name")
	cmd.Flags().StringVar(&pin, "pin", "", "numeric PIN")
	cmd.Flags().StringVar(&role, "role", string(user.RoleWarehouse), "admin, warehouse or field")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}
