// Package main provides the CLI entry point for the saltpack tool.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kuboon/saltpack-go/pkg/armor"
	"github.com/kuboon/saltpack-go/pkg/config"
	"github.com/kuboon/saltpack-go/pkg/keyring"
	"github.com/kuboon/saltpack-go/pkg/logging"
	"github.com/kuboon/saltpack-go/pkg/saltpack"
	"github.com/spf13/cobra"
)

// Environment variables consulted when a key flag is absent.
const (
	envEncryptPK = "SALTPACK_ENCRYPT_PK"
	envDecryptSK = "SALTPACK_DECRYPT_SK"
	envVerifyPK  = "SALTPACK_VERIFY_PK"
	envSignSK    = "SALTPACK_SIGN_SK"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"
)

// appContext carries the resolved configuration shared by all
// subcommands.
type appContext struct {
	cfg     *config.Config
	logger  *slog.Logger
	keyname string
	ringfn  string
}

func main() {
	var (
		configPath string
		ringPath   string
		keyname    string
		verbose    bool
		logFormat  string
	)

	app := &appContext{}

	rootCmd := &cobra.Command{
		Use:   "saltpack",
		Short: "saltpack - encrypt, decrypt, sign and verify messages",
		Long: `saltpack implements the Saltpack v2 message format: streaming
multi-recipient encryption and attached signing over NaCl primitives,
with an ASCII armor for transport over text channels.

Messages are read from standard input and written to standard output.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}
			app.cfg = cfg

			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			format := cfg.Logging.Format
			if logFormat != "" {
				format = logFormat
			}
			app.logger = logging.NewLogger(level, format)

			app.keyname = keyname
			app.ringfn = ringPath
			if app.ringfn == "" {
				app.ringfn = cfg.Keyring.Path
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.saltpack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&ringPath, "keyring", "", "keyring database path")
	rootCmd.PersistentFlags().StringVar(&keyname, "keyname", "", "named key set to load from the keyring")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(keygenCmd(app))
	rootCmd.AddCommand(encryptCmd(app))
	rootCmd.AddCommand(decryptCmd(app))
	rootCmd.AddCommand(signCmd(app))
	rootCmd.AddCommand(verifyCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "saltpack: %v\n", err)
		os.Exit(1)
	}
}

// resolveKey picks key material by precedence: flag, environment,
// config file, then the named keyring entry.
func (app *appContext) resolveKey(flagValue, envName, cfgValue string, fromRing func(*keyring.KeySet) string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envName); v != "" {
		return v, nil
	}
	if cfgValue != "" {
		return cfgValue, nil
	}
	if app.keyname != "" && app.ringfn != "" {
		ring, err := keyring.Open(app.ringfn)
		if err != nil {
			return "", err
		}
		defer ring.Close()

		set, err := ring.Get(app.keyname)
		if err != nil {
			return "", err
		}
		if v := fromRing(set); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no key given: use -k, %s, the config file or --keyname", envName)
}

func keygenCmd(app *appContext) *cobra.Command {
	var (
		asJSON   bool
		saveName string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encryption and a signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			boxKeys, err := saltpack.GenerateBoxKeyPair()
			if err != nil {
				return err
			}
			signKeys, err := saltpack.GenerateSigningKeyPair()
			if err != nil {
				return err
			}

			set := &keyring.KeySet{
				Name:      saveName,
				EncryptPK: boxKeys.Public.Hex(),
				DecryptSK: boxKeys.Secret.Hex(),
				VerifyPK:  signKeys.Public.Hex(),
				SignSK:    signKeys.Secret.Hex(),
			}

			if saveName != "" {
				path := app.ringfn
				if path == "" {
					return fmt.Errorf("--save requires --keyring or a keyring path in the config file")
				}
				ring, err := keyring.Open(path)
				if err != nil {
					return err
				}
				defer ring.Close()

				if err := ring.Save(set); err != nil {
					return err
				}
				app.logger.Debug("key set saved", "name", saveName, "keyring", path)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					envEncryptPK: set.EncryptPK,
					envDecryptSK: set.DecryptSK,
					envVerifyPK:  set.VerifyPK,
					envSignSK:    set.SignSK,
				})
			}

			fmt.Fprintf(out, "%s=%s\n", envEncryptPK, set.EncryptPK)
			fmt.Fprintf(out, "%s=%s\n", envDecryptSK, set.DecryptSK)
			fmt.Fprintf(out, "%s=%s\n", envVerifyPK, set.VerifyPK)
			fmt.Fprintf(out, "%s=%s\n", envSignSK, set.SignSK)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the keys as a JSON object")
	cmd.Flags().StringVar(&saveName, "save", "", "also store the keys in the keyring under this name")
	return cmd
}

func encryptCmd(app *appContext) *cobra.Command {
	var (
		recipientHex []string
		senderHex    string
		useArmor     bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt stdin for one or more recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(recipientHex) == 0 {
				hexKey, err := app.resolveKey("", envEncryptPK, app.cfg.Keys.EncryptPK,
					func(set *keyring.KeySet) string { return set.EncryptPK })
				if err != nil {
					return err
				}
				recipientHex = []string{hexKey}
			}

			recipients := make([]saltpack.BoxPublicKey, len(recipientHex))
			for i, h := range recipientHex {
				pk, err := saltpack.ParseBoxPublicKey(h)
				if err != nil {
					return err
				}
				recipients[i] = pk
			}

			// Omitted sender means an anonymous message.
			var sender *saltpack.BoxKeyPair
			if senderHex != "" {
				sk, err := saltpack.ParseBoxSecretKey(senderHex)
				if err != nil {
					return err
				}
				sender = &saltpack.BoxKeyPair{
					Public: saltpack.PublicFromSecret(sk),
					Secret: sk,
				}
			}

			plaintext, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ciphertext, err := saltpack.Encrypt(plaintext, sender, recipients)
			if err != nil {
				return err
			}
			app.logger.Debug("message encrypted",
				logging.KeyMode, "encryption",
				logging.KeyRecipients, len(recipients),
				logging.KeyBytes, len(plaintext))

			return writeMessage(cmd.OutOrStdout(), ciphertext, armor.MessageTypeEncrypted, wantArmor(cmd, app, useArmor))
		},
	}

	cmd.Flags().StringArrayVarP(&recipientHex, "key", "k", nil, "recipient public key (hex, repeatable)")
	cmd.Flags().StringVar(&senderHex, "sender-sk", "", "sender secret key (hex); omit for anonymous")
	cmd.Flags().BoolVarP(&useArmor, "armor", "a", true, "wrap the output in ASCII armor")
	return cmd
}

func decryptCmd(app *appContext) *cobra.Command {
	var (
		secretHex string
		useArmor  bool
	)

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a message from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			hexKey, err := app.resolveKey(secretHex, envDecryptSK, app.cfg.Keys.DecryptSK,
				func(set *keyring.KeySet) string { return set.DecryptSK })
			if err != nil {
				return err
			}
			sk, err := saltpack.ParseBoxSecretKey(hexKey)
			if err != nil {
				return err
			}
			keys := &saltpack.BoxKeyPair{
				Public: saltpack.PublicFromSecret(sk),
				Secret: sk,
			}

			ciphertext, err := readMessage(cmd.InOrStdin(), useArmor)
			if err != nil {
				return err
			}

			plaintext, sender, err := saltpack.Decrypt(ciphertext, keys)
			if err != nil {
				return err
			}

			if sender != nil {
				app.logger.Debug("message decrypted", "sender", sender.Hex())
			} else {
				app.logger.Debug("message decrypted", "sender", "anonymous")
			}

			_, err = cmd.OutOrStdout().Write(plaintext)
			return err
		},
	}

	cmd.Flags().StringVarP(&secretHex, "key", "k", "", "recipient secret key (hex)")
	cmd.Flags().BoolVarP(&useArmor, "armor", "a", true, "input is ASCII armored")
	return cmd
}

func signCmd(app *appContext) *cobra.Command {
	var (
		secretHex string
		useArmor  bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign stdin, attaching the message to its signatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			hexKey, err := app.resolveKey(secretHex, envSignSK, app.cfg.Keys.SignSK,
				func(set *keyring.KeySet) string { return set.SignSK })
			if err != nil {
				return err
			}
			sk, err := saltpack.ParseSigningSecretKey(hexKey)
			if err != nil {
				return err
			}
			signer := &saltpack.SigningKeyPair{
				Public: saltpack.SigningPublicFromSecret(sk),
				Secret: sk,
			}

			message, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			signed, err := saltpack.Sign(message, signer)
			if err != nil {
				return err
			}
			app.logger.Debug("message signed",
				logging.KeyMode, "attached signing",
				logging.KeyBytes, len(message))

			return writeMessage(cmd.OutOrStdout(), signed, armor.MessageTypeSigned, wantArmor(cmd, app, useArmor))
		},
	}

	cmd.Flags().StringVarP(&secretHex, "key", "k", "", "signing secret key (hex)")
	cmd.Flags().BoolVarP(&useArmor, "armor", "a", true, "wrap the output in ASCII armor")
	return cmd
}

func verifyCmd(app *appContext) *cobra.Command {
	var (
		publicHex string
		useArmor  bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed message from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			hexKey, err := app.resolveKey(publicHex, envVerifyPK, app.cfg.Keys.VerifyPK,
				func(set *keyring.KeySet) string { return set.VerifyPK })
			if err != nil {
				return err
			}
			pk, err := saltpack.ParseSigningPublicKey(hexKey)
			if err != nil {
				return err
			}

			signed, err := readMessage(cmd.InOrStdin(), useArmor)
			if err != nil {
				return err
			}

			message, err := saltpack.Verify(signed, pk)
			if err != nil {
				return err
			}
			app.logger.Debug("message verified", "signer", pk.Hex())

			_, err = cmd.OutOrStdout().Write(message)
			return err
		},
	}

	cmd.Flags().StringVarP(&publicHex, "key", "k", "", "signer public key (hex)")
	cmd.Flags().BoolVarP(&useArmor, "armor", "a", true, "input is ASCII armored")
	return cmd
}

// wantArmor resolves the armor setting: an explicit -a flag wins, then
// the config file, then the default of true.
func wantArmor(cmd *cobra.Command, app *appContext, flagValue bool) bool {
	if cmd.Flags().Changed("armor") {
		return flagValue
	}
	if app.cfg != nil && app.cfg.Armor != nil {
		return *app.cfg.Armor
	}
	return true
}

func writeMessage(w io.Writer, payload []byte, typ armor.MessageType, armored bool) error {
	if !armored {
		_, err := w.Write(payload)
		return err
	}
	_, err := io.WriteString(w, armor.Encode(payload, typ)+"\n")
	return err
}

func readMessage(r io.Reader, armored bool) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !armored {
		return data, nil
	}
	// Tolerate binary input on an armored read when it clearly is not
	// framed text.
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "BEGIN SALTPACK") {
		return data, nil
	}
	return armor.Decode(string(data))
}
