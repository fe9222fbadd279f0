/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cronvalidate implements the five-field cron grammar checks use as
// their schedule, plus a supplementary next-run-time calculation for
// display purposes. The grammar, not robfig/cron's parser, is the
// authoritative validator (see SPEC_FULL.md §9): robfig/cron accepts a
// broader dialect (named months, "@daily" macros) that this service must
// reject.
package cronvalidate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
)

const (
	minutePattern     = `(\*|[0-5]?\d)(/\d+)?([-,][0-5]?\d)*`
	hourPattern       = `(\*|[01]?\d|2[0-3])(/\d+)?([-,]([01]?\d|2[0-3]))*`
	dayOfMonthPattern = `(\*|[1-9]|[12]\d|3[01])(/\d+)?([-,]([1-9]|[12]\d|3[01]))*`
	monthPattern      = `(\*|1[0-2]|0?[1-9])(/\d+)?([-,](1[0-2]|0?[1-9]))*`
	dayOfWeekPattern  = `(\*|[0-7])(/\d+)?([-,][0-7])*`
)

var fieldPattern = regexp.MustCompile(
	"^" + strings.Join([]string{
		minutePattern,
		hourPattern,
		dayOfMonthPattern,
		monthPattern,
		dayOfWeekPattern,
	}, " ") + "$",
)

// Validate rejects any schedule whose fields do not match the grammar,
// returning a checkerr.CronExpressionValidationError.
func Validate(expr checktypes.CronExpression) error {
	if !fieldPattern.MatchString(string(expr)) {
		return &checkerr.CronExpressionValidationError{Expression: string(expr)}
	}
	return nil
}

var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next scheduled run time after the given instant. The
// expression is expected to have passed Validate, but the grammar is not a
// strict subset of robfig/cron's standard dialect: a few accepted forms
// (day-of-week 7, a step of /0) still fail to parse here and return an error.
func NextRun(expr checktypes.CronExpression, after time.Time) (time.Time, error) {
	schedule, err := standardParser.Parse(string(expr))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing validated cron expression %q: %w", expr, err)
	}
	return schedule.Next(after), nil
}
