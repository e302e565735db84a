package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OutOfBears/rbx-configs/internal/output"
	"github.com/OutOfBears/rbx-configs/internal/syncconfig"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage the Roblox session cookie",
	GroupID: "system",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the .ROBLOSECURITY session cookie",
	Long: `Store the .ROBLOSECURITY session cookie used to authenticate against the
configuration service. The cookie comes from --cookie, from a pipe on stdin,
or from an interactive prompt. RBX_COOKIE overrides the stored cookie.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cookie, _ := cmd.Flags().GetString("cookie")

		if cookie == "" {
			var err error
			if output.IsTerminal() {
				cookie, err = promptCookie()
			} else {
				cookie, err = readCookieStdin()
			}
			if err != nil {
				output.Error("read cookie: %v", err)
				return err
			}
		}

		cookie = strings.TrimSpace(cookie)
		if cookie == "" {
			err := fmt.Errorf("cookie required")
			output.Error("%v", err)
			return err
		}

		creds := &syncconfig.AuthCredentials{
			Cookie:  cookie,
			SavedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := syncconfig.SaveAuth(creds); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		output.Success("Logged in. Cookie saved as %s", output.MaskToken(cookie))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncconfig.ClearAuth(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Logged out.")
		if os.Getenv("RBX_COOKIE") != "" {
			output.Warning("RBX_COOKIE is set and still takes effect")
		}
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := syncconfig.LoadAuth()
		if err != nil {
			output.Error("load auth: %v", err)
			return err
		}

		source := syncconfig.CookieSource()

		if jsonMode(cmd) {
			result := map[string]interface{}{
				"authenticated": source != "",
				"source":        source,
				"api_url":       syncconfig.GetAPIURL(),
			}
			if source != "" {
				result["cookie"] = output.MaskToken(syncconfig.GetCookie())
			}
			return output.JSON(result)
		}

		fmt.Println(output.Title(syncconfig.GetAPIURL()))
		if source == "" {
			fmt.Println("  Not logged in.")
			return nil
		}

		fmt.Printf("  Cookie: %s\n", output.MaskToken(syncconfig.GetCookie()))
		fmt.Printf("  Source: %s\n", source)
		if source == "auth.json" && creds != nil && creds.SavedAt != "" {
			saved := creds.SavedAt
			if t, err := time.Parse(time.RFC3339, creds.SavedAt); err == nil {
				saved = fmt.Sprintf("%s (%s)", creds.SavedAt, output.FormatTimeAgo(t))
			}
			fmt.Printf("  Saved:  %s\n", saved)
		}
		return nil
	},
}

// promptCookie asks for the cookie interactively without echoing it.
func promptCookie() (string, error) {
	var cookie string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(".ROBLOSECURITY cookie").
			EchoMode(huh.EchoModePassword).
			Value(&cookie),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return cookie, nil
}

// readCookieStdin reads a single piped line, e.g.
// `pass roblox/cookie | rbx-configs auth login`.
func readCookieStdin() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

func init() {
	authLoginCmd.Flags().String("cookie", "", "Session cookie value (prompted for when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
