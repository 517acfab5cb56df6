package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psantana5/grain/internal/config"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

const userFields = `id email name currency createdAt`

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session token",
	Long: `Log in to a Grain server. The password is read from --password, the
GRAIN_PASSWORD environment variable or standard input, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, "login", `mutation($email: String!, $password: String!) {
			login(email: $email, password: $password) { token user { `+userFields+` } }
		}`)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, "register", `mutation($email: String!, $password: String!, $name: String) {
			register(email: $email, password: $password, name: $name) { token user { `+userFields+` } }
		}`)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadClientConfig()
		if err != nil {
			return err
		}
		if cfg.Token == "" {
			fmt.Fprintln(stdout(cmd), "Not logged in")
			return nil
		}

		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		// the local token is dropped even if the server already forgot the session
		if err := c.do(cmd.Context(), `mutation { logout }`, nil, nil); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}

		cfg.Token = ""
		if err := config.SaveClient(path, cfg); err != nil {
			return err
		}
		fmt.Fprintln(stdout(cmd), "✓ Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(true)
		if err != nil {
			return err
		}
		var data struct{ Me record }
		if err := c.do(cmd.Context(), `{ me { `+userFields+` } }`, nil, &data); err != nil {
			return err
		}
		if data.Me == nil {
			return errNotLoggedIn
		}
		return render(stdout(cmd), outputFormat, data.Me, func(w io.Writer) error {
			return renderFields(w, [][2]string{
				{"ID", text(data.Me["id"])},
				{"Email", text(data.Me["email"])},
				{"Name", text(data.Me["name"])},
				{"Currency", text(data.Me["currency"])},
				{"Member since", ago(data.Me["createdAt"])},
			})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "account email")
		c.Flags().StringVar(&authPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
	}
	registerCmd.Flags().StringVar(&authName, "name", "", "display name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

// authenticate runs login or register and stores the returned token
func authenticate(cmd *cobra.Command, field, mutation string) error {
	cfg, path, err := loadClientConfig()
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	c.token = ""

	vars := map[string]interface{}{"email": authEmail, "password": password}
	if field == "register" {
		vars["name"] = authName
	}
	var data map[string]struct {
		Token string `json:"token"`
		User  record `json:"user"`
	}
	if err := c.do(cmd.Context(), mutation, vars, &data); err != nil {
		return err
	}

	payload := data[field]
	cfg.Token = payload.Token
	cfg.Email = text(payload.User["email"])
	if err := config.SaveClient(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "✓ Logged in to %s as %s\n", cfg.Server, cfg.Email)
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv("GRAIN_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
