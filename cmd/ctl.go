package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CreateCtlCmd creates the ctl command, a small client for the TCP control
// protocol. It sends one command line and prints the JSON response.
func CreateCtlCmd() *cobra.Command {
	var addr string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ctl <action> [stream-id]",
		Short: "Send a control command to a running camswitch daemon",
		Long: `Connects to the TCP control socket and issues a command. Actions are
status, live, standby, and toggle. The stream-id may be a camera id or
"*" to address every camera; omitting it also addresses every camera.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			action := strings.ToLower(args[0])
			target := ""
			if len(args) == 2 {
				target = args[1]
			}

			conn, err := net.DialTimeout("tcp", addr, timeout)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", addr, err)
			}
			defer conn.Close()

			if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}

			line := action
			if target != "" {
				line += " " + target
			}
			if _, err := fmt.Fprintln(conn, line); err != nil {
				return fmt.Errorf("send command: %w", err)
			}

			reply, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			fmt.Fprint(os.Stdout, reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:9000", "Control socket address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Dial and response timeout")

	return cmd
}
