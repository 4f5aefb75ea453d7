package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrimatch/agrimatch/internal/core/auth"
	"github.com/agrimatch/agrimatch/internal/core/config"
	"github.com/agrimatch/agrimatch/internal/core/db"
	"github.com/agrimatch/agrimatch/internal/core/store"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key and store its hash",
	Long:  `Prints the key once; only the HMAC hash is persisted, so a lost key cannot be recovered.`,
	RunE:  runAPIKeyGenerate,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key>",
	Short: "Revoke an existing API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyGenerateCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
	apikeyGenerateCmd.Flags().String("name", "", "label for the key (e.g. frontend, ci)")
	apikeyGenerateCmd.MarkFlagRequired("name")
}

func openStore() (*store.Store, func(), error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store.New(queries), func() { database.Close() }, nil
}

func runAPIKeyGenerate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set AM_HMAC_SECRET environment variable)")
	}

	// Sign with any configured secret; rotation keeps old secret_ids valid
	// so existing keys survive a new secret being added.
	var secretID string
	var secret []byte
	for id, s := range secrets {
		secretID, secret = id, s
		break
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate key material: %w", err)
	}
	apiKey := auth.FormatAPIKey(secretID, hex.EncodeToString(raw))

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.InsertAPIKey(auth.ComputeHMAC(secret, apiKey), secretID, name); err != nil {
		return err
	}

	fmt.Printf("%s\n", apiKey)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	apiKey := args[0]

	secretID, _, err := auth.ParseAPIKey(apiKey)
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	secret, ok := secrets[secretID]
	if !ok {
		return auth.ErrUnknownKey
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.RevokeAPIKey(auth.ComputeHMAC(secret, apiKey)); err != nil {
		return err
	}

	fmt.Println("revoked")
	return nil
}
