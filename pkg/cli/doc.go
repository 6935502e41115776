/*
Package cli provides helpers shared by the relay commands.

Output Formatting:

Commands that print structured results accept --output text|json|yaml:

	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary)

Signal Handling:

SignalContext is cancelled on SIGINT/SIGTERM and drives graceful shutdown.
ReloadSignals delivers SIGHUP for config reloads:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Exit Codes:

ExitCode maps a command error to the process exit code; configuration
errors exit with 2.
*/
package cli
