package cmd

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/kubam/internal/model"
)

// passwordEnv is read when no password flag is given.
const passwordEnv = "KUBAM_UCSM_PASSWORD"

var (
	loginCreds    = &model.Credentials{}
	passwordStdin bool

	errPasswordSources = errors.New("--password and --password-stdin are mutually exclusive")
)

// loginPassword returns the password flag value, the first line of in when
// fromStdin is set, otherwise the value of KUBAM_UCSM_PASSWORD.
func loginPassword(flagValue string, fromStdin bool, in io.Reader) (string, error) {
	switch {
	case flagValue != "" && fromStdin:
		return "", errPasswordSources
	case flagValue != "":
		return flagValue, nil
	case fromStdin:
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", errors.Wrap(err, "reading password from stdin")
		}

		return strings.TrimRight(line, "\r\n"), nil
	default:
		return os.Getenv(passwordEnv), nil
	}
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the UCS credentials",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credentials, password redacted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.CredentialsStatus(cmd.Context()))
	},
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify and store UCS credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := loginPassword(loginCreds.Password, passwordStdin, cmd.InOrStdin())
		if err != nil {
			return err
		}

		loginCreds.Password = password

		return printResult(cmd, app.handler.Login(cmd.Context(), loginCreds))
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored UCS credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printResult(cmd, app.handler.Logout(cmd.Context()))
	},
}

func init() {
	sessionLoginCmd.Flags().StringVarP(&loginCreds.User, "user", "u", "", "UCS user")
	sessionLoginCmd.Flags().StringVarP(&loginCreds.Password, "password", "p", "", "UCS password, "+passwordEnv+" is used when unset")
	sessionLoginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the UCS password from stdin")
	sessionLoginCmd.Flags().StringVar(&loginCreds.IP, "ip", "", "UCS manager address")

	sessionCmd.AddCommand(sessionStatusCmd, sessionLoginCmd, sessionLogoutCmd)
	rootCmd.AddCommand(sessionCmd)
}
