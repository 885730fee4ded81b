package builder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/validate"
)

// loadStatus is the outcome of loading one target CSV
type loadStatus int

const (
	loadOK loadStatus = iota
	loadEmpty
)

// row is one CSV line: first name, last name, email, position
type row [4]string

func (r *row) target() models.Target {
	return models.Target{FirstName: r[0], LastName: r[1], Email: r[2], Position: r[3]}
}

// parseTargetRows reads a target CSV. The header line is skipped and
// missing trailing columns are left empty.
func parseTargetRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read targets: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		var r row
		for i := 0; i < len(r) && i < len(rec); i++ {
			r[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, r)
	}
}

// classify splits rows into accepted, badly formatted and wrong-domain rows
func classify(rows []row, domains []string) (ok, format, mismatch []row) {
	for _, r := range rows {
		switch {
		case validate.Email(r[2]) != nil:
			format = append(format, r)
		case !validate.Domain(r[2], domains):
			mismatch = append(mismatch, r)
		default:
			ok = append(ok, r)
		}
	}
	return ok, format, mismatch
}

func (b *Builder) buildGroups(id string, domains []string) ([]models.Group, error) {
	b.logger.Info("getting group metadata")

	n, err := b.prompt.Number("How many groups do you need?", 0, 1, 0)
	if err != nil {
		return nil, err
	}
	if n > 1 {
		b.prompt.Warn("NOTE: Please load each group as a different CSV")
	}

	labels, err := b.prompt.YesNo("Are there customer labels?", false)
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, n)
	for i := 1; i <= n; i++ {
		b.logger.Info("building group", "number", i)
		group := models.Group{Name: models.GroupName(id, i)}

		for {
			targets, status, err := b.loadTargets(domains, labels)
			if err != nil {
				return nil, err
			}
			if status == loadEmpty {
				b.critical("no targets loaded")
				b.prompt.Warn("No targets loaded from file, please check the file and try again.")
				continue
			}
			group.Targets = targets
			break
		}

		b.logger.Info("group ready", "name", group.Name, "targets", len(group.Targets))
		groups = append(groups, group)
	}
	return groups, nil
}

// loadTargets reads one CSV and walks the operator through fixing rows
// with a bad address format or a domain outside the assessment.
func (b *Builder) loadTargets(domains []string, labels bool) ([]models.Target, loadStatus, error) {
	var rows []row
	for {
		path, data, err := b.prompt.File("E-mail CSV name", ".csv")
		if err != nil {
			return nil, loadEmpty, err
		}
		rows, err = parseTargetRows(bytes.NewReader(data))
		if err != nil {
			b.logger.Error("failed to parse target file", "path", path, "error", err)
			continue
		}
		break
	}

	ok, format, mismatch := classify(rows, domains)

	fixFormat, err := b.shouldFix(len(format), "formatting")
	if err != nil {
		return nil, loadEmpty, err
	}
	if fixFormat {
		for _, r := range format {
			if r[2], err = b.prompt.Email("Correct email formatting", r[2]); err != nil {
				return nil, loadEmpty, err
			}
			if validate.Domain(r[2], domains) {
				ok = append(ok, r)
			} else {
				mismatch = append(mismatch, r)
			}
		}
	} else if len(format) > 0 {
		b.prompt.Warn("Incorrectly formatted emails will not be added, continuing...")
	}

	fixDomain, err := b.shouldFix(len(mismatch), "domain mismatch")
	if err != nil {
		return nil, loadEmpty, err
	}
	if fixDomain {
		for _, r := range mismatch {
			if r[2], err = b.fixDomain(r[2], domains); err != nil {
				return nil, loadEmpty, err
			}
			ok = append(ok, r)
		}
	} else if len(mismatch) > 0 {
		b.prompt.Warn("Emails outside the target domains will not be added, continuing...")
	}

	targets := make([]models.Target, 0, len(ok))
	for _, r := range ok {
		t := r.target()
		if labels && t.Position == "" {
			b.logger.Error("missing label", "email", t.Email)
			if t.Position, err = b.prompt.Input("Please enter a label", ""); err != nil {
				return nil, loadEmpty, err
			}
		}
		targets = append(targets, t)
	}

	if len(targets) == 0 {
		return nil, loadEmpty, nil
	}
	return targets, loadOK, nil
}

// shouldFix decides whether rows with errors are corrected one by one.
// A single error is always corrected; for more the operator chooses.
func (b *Builder) shouldFix(count int, kind string) (bool, error) {
	switch {
	case count == 0:
		return false, nil
	case count < 2:
		return true, nil
	}
	b.logger.Error("rows rejected", "kind", kind, "count", count)
	return b.prompt.YesNo(fmt.Sprintf("%d %s errors. Would you like to correct each here?", count, kind), false)
}

func (b *Builder) fixDomain(email string, domains []string) (string, error) {
	for {
		v, err := b.prompt.Email("Correct email domain", email)
		if err != nil {
			return "", err
		}
		if validate.Domain(v, domains) {
			return v, nil
		}
		b.prompt.Warn("%s is not in the target domains: %s", v, strings.Join(domains, " "))
		email = v
	}
}
