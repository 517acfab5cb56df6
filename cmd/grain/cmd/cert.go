package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tlsutil "github.com/psantana5/grain/pkg/tls"
)

var (
	certFile     string
	keyFile      string
	certHosts    []string
	certValidity time.Duration
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "TLS certificate helpers",
}

var certGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a self-signed server certificate",
	Long: `Generate a self-signed ECDSA certificate for the API server. localhost,
127.0.0.1 and ::1 are always included; add more names with --host.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := tlsutil.GenerateSelfSignedCert(certFile, keyFile, tlsutil.CertOptions{
			CommonName: "grain",
			Hosts:      certHosts,
			Validity:   certValidity,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "✓ Certificate written to %s\n  Key written to %s\n", certFile, keyFile)
		return nil
	},
}

func init() {
	certGenerateCmd.Flags().StringVar(&certFile, "cert", "certs/grain.crt", "certificate output path")
	certGenerateCmd.Flags().StringVar(&keyFile, "key", "certs/grain.key", "private key output path")
	certGenerateCmd.Flags().StringSliceVar(&certHosts, "host", nil, "extra DNS name or IP address (repeatable)")
	certGenerateCmd.Flags().DurationVar(&certValidity, "validity", tlsutil.DefaultValidity, "certificate lifetime")

	certCmd.AddCommand(certGenerateCmd)
	rootCmd.AddCommand(certCmd)
}
