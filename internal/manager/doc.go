// Package manager runs the entry pipeline: normalize the requests file,
// scrape open giveaways, keep the requested ones the user has not entered
// yet, enter them, and report the outcome. Watch repeats the pipeline on a
// timer and whenever the requests file is edited.
package manager
