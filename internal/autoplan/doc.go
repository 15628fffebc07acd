// Package autoplan runs the daily planning pass on a schedule.
//
// The schedule string accepts cron expressions (robfig/cron), Go durations
// and HH:MM intervals; see ParseSchedule. Each firing plans the current day
// for every configured user.
package autoplan
