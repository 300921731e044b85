package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/itchan-dev/worklog/internal/config"
	"github.com/itchan-dev/worklog/internal/logger"
	"github.com/itchan-dev/worklog/internal/service"
	"github.com/itchan-dev/worklog/internal/setup"
	"github.com/prometheus/client_golang/prometheus"
)

const usage = `usage: worklog [-config_folder dir] <command> [args]

commands:
  topic <content>                 create a topic
  message <topicId> <content>     add a message to a topic
  attach <messageId> <file>       attach a file to a message
  list                            list topics, messages and attachments
  show <messageId>                render a message
`

var errUsage = errors.New("invalid usage")

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "", "path to folder with public.yaml (defaults are used when empty)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	cfg := config.Default()
	if configFolder != "" {
		cfg = config.MustLoad(configFolder)
	}

	deps, err := setup.SetupDependencies(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	os.Exit(execute(deps.WorkLog, deps.LogFile, flag.Args(), os.Stdout, os.Stderr))
}

// execute runs one command and flushes the log buffer however the command
// ends, panics included.
func execute(svc service.WorkLogService, logFile *logger.FileBuffer, args []string, out, errOut io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("command panicked", "panic", r, "stack", string(debug.Stack()))
			code = 1
		}
		if logFile.Pending() > 0 {
			if err := logFile.Flush(); err != nil {
				fmt.Fprintln(errOut, "failed to flush log:", err)
			}
		}
	}()

	if err := run(svc, args, out); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(errOut, usage)
		}
		logger.Log.Error("command failed", "error", err)
		return 1
	}
	return 0
}

func run(svc service.WorkLogService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "topic":
		if len(rest) != 1 {
			return errUsage
		}
		topic, err := svc.CreateTopic(rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, topic.Id)

	case "message":
		if len(rest) != 2 {
			return errUsage
		}
		topicId, err := uuid.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("bad topic id: %w", err)
		}
		msg, err := svc.AddMessage(topicId, rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg.Id)

	case "attach":
		if len(rest) != 2 {
			return errUsage
		}
		messageId, err := uuid.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("bad message id: %w", err)
		}
		a, err := svc.AttachFile(messageId, rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.Id, a.RelativeURL())

	case "list":
		topics, err := svc.Topics()
		if err != nil {
			return err
		}
		for _, t := range topics {
			fmt.Fprintf(out, "%s  %s  %s\n", t.Id, t.CreatedAtUtc.Format("2006-01-02 15:04"), t.Content)
			for _, m := range t.Messages {
				fmt.Fprintf(out, "  %s  %s  %s\n", m.Id, m.CreatedAtUtc.Format("2006-01-02 15:04"), m.Content)
				for _, a := range m.Attachments {
					if size := a.ImageSize(); size != nil {
						fmt.Fprintf(out, "    %s  image %dx%d\n", a.Name(), size.Width, size.Height)
					} else {
						fmt.Fprintf(out, "    %s\n", a.Name())
					}
				}
			}
		}

	case "show":
		if len(rest) != 1 {
			return errUsage
		}
		messageId, err := uuid.Parse(rest[0])
		if err != nil {
			return fmt.Errorf("bad message id: %w", err)
		}
		rendered, err := svc.RenderMessage(messageId)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, rendered.HTML)
		for _, v := range rendered.Attachments {
			if v.IsImage {
				fmt.Fprintf(out, "%s (%d bytes) preview %s %dx%d\n", v.URL, v.Length, v.PreviewURL, v.Width, v.Height)
			} else {
				fmt.Fprintf(out, "%s (%d bytes)\n", v.URL, v.Length)
			}
		}

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}
