package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("the job database is disabled (set database.enabled)")
)

type commandLine struct {
	db      *sql.DB // nil when the job database is disabled
	jobRepo video.Repository
	usrSvc  *user.Service
	poller  *video.Poller
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]             - run a goose command on the job database")
	fmt.Fprintln(cli.out, "  upgrade -email EMAIL -tier TIER    - upgrade a member's plan")
	fmt.Fprintln(cli.out, "  watch -email EMAIL -upload ID      - wait for an upload to become a playable video")
	fmt.Fprintln(cli.out, "  jobs [-state STATE]                - list video ingestion jobs")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	upgradeCmd := cli.newFlagSet("upgrade")
	upgradeEmail := upgradeCmd.String("email", "", "The member's email. The password will be prompted next.")
	upgradeTier := upgradeCmd.String("tier", "", "The plan to upgrade to: pro or ultra.")

	watchCmd := cli.newFlagSet("watch")
	watchEmail := watchCmd.String("email", "", "The uploader's email. The password will be prompted next.")
	watchUpload := watchCmd.String("upload", "", "The upload id returned with the signed upload URL.")

	jobsCmd := cli.newFlagSet("jobs")
	jobsState := jobsCmd.String("state", "", "Only list jobs in this state.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "upgrade":
		if err := upgradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *upgradeEmail == "" || *upgradeTier == "" {
			upgradeCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			upgradeCmd.Usage()
			return errHelp
		}
		return cli.upgrade(context.Background(), *upgradeEmail, pwd, *upgradeTier)

	case "watch":
		if err := watchCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *watchEmail == "" || *watchUpload == "" {
			watchCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			watchCmd.Usage()
			return errHelp
		}
		return cli.watch(context.Background(), *watchEmail, pwd, *watchUpload)

	case "jobs":
		if err := jobsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.jobs(context.Background(), *jobsState)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// login opens a session on the hosted backend, as the member would from the login page.
func (cli *commandLine) login(ctx context.Context, email, pwd string) (user.Session, error) {
	return cli.usrSvc.Login(ctx, user.Credentials{Email: email, Password: pwd})
}
