package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
)

var errUnknownState = errors.New("unknown job state")

func (cli *commandLine) upgrade(ctx context.Context, email, pwd, target string) error {
	sess, err := cli.login(ctx, email, pwd)
	if err != nil {
		return err
	}
	usr, err := cli.usrSvc.Upgrade(ctx, sess.Token, user.UpgradeRequest{Tier: tier.Tier(target)})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now on the %s plan\n", usr.Email, usr.Tier.Label())
	return nil
}

// watch runs the same bounded poll as the upload watchers, reporting every status check.
func (cli *commandLine) watch(ctx context.Context, email, pwd, uploadID string) error {
	sess, err := cli.login(ctx, email, pwd)
	if err != nil {
		return err
	}

	progress := func(phase string) video.AttemptFunc {
		return func(attempt int) {
			fmt.Fprintf(cli.out, "%s: check %d\n", phase, attempt)
		}
	}
	assetID, err := cli.poller.WaitForAsset(ctx, sess.Token, uploadID, progress("upload"))
	if err != nil {
		return err
	}
	asset, err := cli.poller.WaitForReady(ctx, sess.Token, assetID, progress("asset"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "ready: asset=%s playback=%s duration=%.1fs\n", asset.ID, asset.PlaybackID, asset.Duration)
	return nil
}

func (cli *commandLine) jobs(ctx context.Context, state string) error {
	var filter video.QueryFilter
	if state != "" {
		st, ok := video.ParseState(state)
		if !ok {
			return errUnknownState
		}
		filter.State = st
	}

	jobs, err := cli.jobRepo.FilterJobs(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tPLAYBACK\tATTEMPTS\tCREATED BY\tUPDATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			job.ID, job.State, job.PlaybackID, job.Attempts, job.CreatedBy, job.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
