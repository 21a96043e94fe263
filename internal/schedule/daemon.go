// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"github.com/tallyfin/tally/internal/logging"
)

// Daemon runs the periodic jobs (due-template processing, remote sync) on a
// quartz scheduler.
type Daemon struct {
	sched quartz.Scheduler
}

// NewDaemon creates a stopped daemon.
func NewDaemon() (*Daemon, error) {
	sched, err := quartz.NewStdScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Daemon{sched: sched}, nil
}

// Start begins executing scheduled jobs. The daemon stops when ctx is
// cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) {
	d.sched.Start(ctx)
}

// ScheduleEvery registers a job to run at a fixed interval. The name must be
// unique within the daemon.
func (d *Daemon) ScheduleEvery(name string, interval time.Duration, job quartz.Job) error {
	detail := quartz.NewJobDetail(job, quartz.NewJobKey(name))
	if err := d.sched.ScheduleJob(detail, quartz.NewSimpleTrigger(interval)); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	logging.Infof("daemon: scheduled %s every %s", name, interval)
	return nil
}

// Stop halts the scheduler and waits for in-flight jobs to finish.
func (d *Daemon) Stop(ctx context.Context) {
	d.sched.Stop()
	d.sched.Wait(ctx)
}

// ProcessDueJob is the quartz job that scans one owner's due templates.
type ProcessDueJob struct {
	Processor *Processor
	OwnerID   string
}

// Execute runs one scan. Retry outcomes are not job errors; the next tick
// picks the deferred templates up again.
func (j *ProcessDueJob) Execute(ctx context.Context) error {
	summary, err := j.Processor.ProcessDueTemplates(j.OwnerID)
	if err != nil {
		return err
	}
	if summary.Created > 0 {
		logging.Infof("daemon: materialized %d transaction(s) for %s", summary.Created, j.OwnerID)
	}
	return nil
}

// Description identifies the job in scheduler logs.
func (j *ProcessDueJob) Description() string {
	return "process-due:" + j.OwnerID
}

// FuncJob adapts a plain function to the quartz Job interface. Used for the
// sync job so this package does not depend on the sync machinery.
type FuncJob struct {
	Name string
	Run  func(ctx context.Context) error
}

func (j *FuncJob) Execute(ctx context.Context) error { return j.Run(ctx) }

func (j *FuncJob) Description() string { return j.Name }
