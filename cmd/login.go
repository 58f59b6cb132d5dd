package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/s0up4200/gallery3/config"
	"github.com/s0up4200/gallery3/gallery"
)

var (
	loginHost     string
	loginUser     string
	saveLogin     bool
	passwordStdin bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a username and password to obtain an API key",
	Long: `Exchange a username and password for a REST API key. The password is read
from the terminal without echo, or from stdin with --password-stdin. With --save
the host, user and key are written to the config file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginHost, "host", "", "gallery host (default from config)")
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "user name (default from config)")
	loginCmd.Flags().BoolVar(&saveLogin, "save", false, "save the API key to the config file")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	gc := cfg.Gallery
	if loginHost != "" {
		gc.Host = loginHost
	}
	if loginUser != "" {
		gc.Username = loginUser
	}
	if gc.Host == "" {
		return fmt.Errorf("no gallery host: use --host or set gallery.host in the config")
	}
	if strings.Contains(gc.Host, "://") {
		return fmt.Errorf("host must not include a scheme; use gallery.ssl for https")
	}

	stdin := bufio.NewReader(os.Stdin)
	if gc.Username == "" {
		fmt.Fprint(os.Stderr, "Username: ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read username: %w", err)
		}
		gc.Username = strings.TrimSpace(line)
	}

	password, err := readPassword(stdin)
	if err != nil {
		return err
	}

	client, err := gallery.Login(commandContext(cmd), gc.Host, gc.Username, password, logger, clientOptions(gc)...)
	if err != nil {
		return err
	}
	gc.APIKey = client.APIKey()

	if !saveLogin {
		fmt.Println(gc.APIKey)
		return nil
	}

	if cfg.Safety.DryRun {
		logger.Info().Str("file", cfg.Path).Msg("[DRY RUN] Would save API key")
		return nil
	}
	if err := config.SaveCredentials(cfg.Path, gc); err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as %s, API key saved to %s\n", gc.Username, cfg.Path)
	return nil
}

// readPassword prompts on the terminal, or reads one line when stdin is not a
// terminal or --password-stdin is set.
func readPassword(stdin *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if passwordStdin || !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
