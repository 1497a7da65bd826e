package tcerr

import (
	"fmt"
	"log/slog"
)

// Errors accumulates the diagnostics of one theory compilation, so that all
// of them can be reported in one pass
type Errors struct {
	errs []TheoryError
}

func (r *Errors) With(err ...TheoryError) *Errors {
	if r == nil {
		return &Errors{errs: err}
	}
	for _, err := range err {
		r.errs = append(r.errs, err)
	}
	return r
}

func (r *Errors) Merge(err *Errors) *Errors {
	if r == nil {
		return err
	}
	if err == nil {
		return r
	}
	if len(err.errs) == 0 {
		return r
	}
	return r.With(err.errs...)
}

// Errors returns every diagnostic, warnings included
func (r *Errors) Errors() []TheoryError {
	if r == nil {
		return nil
	}
	return r.errs
}

// Warnings returns the diagnostics of SeverityWarning
func (r *Errors) Warnings() []TheoryError {
	return r.bySeverity(SeverityWarning)
}

// Fatal returns the diagnostics of SeverityError
func (r *Errors) Fatal() []TheoryError {
	return r.bySeverity(SeverityError)
}

func (r *Errors) bySeverity(s Severity) []TheoryError {
	if r == nil {
		return nil
	}
	var res []TheoryError
	for _, e := range r.errs {
		if e.Severity() == s {
			res = append(res, e)
		}
	}
	return res
}

// HasError is true when at least one diagnostic is an error, rather than a warning
func (r *Errors) HasError() bool {
	if r == nil {
		return false
	}
	return len(r.Fatal()) > 0
}

func (r *Errors) LogValue() slog.Value {
	if r == nil {
		return slog.GroupValue()
	}
	var vals []slog.Attr
	for i, v := range r.errs {
		vals = append(vals, slog.Attr{
			Key: fmt.Sprint("e", i),
			Value: slog.GroupValue(
				slog.Attr{
					Key:   "msg",
					Value: slog.StringValue(FormatWithCode(v)),
				},
			),
		})
	}
	return slog.GroupValue(vals...)
}
