package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/repository"
	"floodwatch/internal/service"
)

var (
	seedEmail    string
	seedName     string
	seedPassword string
	seedZone     string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an mdrrmo_admin login",
	Long: `Create an mdrrmo_admin profile. The password is read from --password or,
when omitted, from FLOODWATCH_ADMIN_PASSWORD. An existing email is left untouched.`,
	RunE: runSeedAdmin,
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "login email (required)")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "MDRRMO Administrator", "display name")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "login password")
	seedAdminCmd.Flags().StringVar(&seedZone, "zone", "", "assigned zone")
	_ = seedAdminCmd.MarkFlagRequired("email")
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	password := seedPassword
	if password == "" {
		password = os.Getenv("FLOODWATCH_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("no password: pass --password or set FLOODWATCH_ADMIN_PASSWORD")
	}

	db, log, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	defer log.Sync()

	// Sign-up without sessions or change fan-out: nothing is listening.
	auth := service.NewAuthService(repository.NewPostgresProfilesRepository(db), nil, 0, nil, log)
	p, err := auth.SignUp(cmd.Context(), cliActor, service.SignUpRequest{
		FullName:     seedName,
		Email:        seedEmail,
		Password:     password,
		Role:         domain.RoleMDRRMOAdmin,
		AssignedZone: seedZone,
	})
	if errors.Is(err, domain.ErrConflict) {
		log.Info("Admin already exists", zap.String("email", seedEmail))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", p.Email, p.UserID)
	return nil
}
