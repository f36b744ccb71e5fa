package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"ftpsession/config"
	"ftpsession/core"
	"ftpsession/legacy"
	"ftpsession/session"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	stepColor = color.New(color.FgCyan)
)

type checkResult struct {
	step   string
	ok     bool
	detail string
}

// runVerify connects with the configured session, checks that the existing
// directory lists and the missing one does not, then downloads the verify
// file in binary and ASCII and compares digests. It prints each step and a
// summary table to w and reports whether every step passed.
func runVerify(w io.Writer, cfg *config.Config, opts ...session.Option) bool {
	f, err := core.NewFacade(cfg, opts...)
	if err != nil {
		failColor.Fprintf(w, "invalid session config: %v\n", err)
		return false
	}
	defer f.Disconnect()

	v := cfg.Verify
	var results []checkResult
	check := func(step string, ok bool, detail string) bool {
		stepColor.Fprintf(w, "%-28s", step)
		if ok {
			passColor.Fprintln(w, "PASS")
		} else {
			failColor.Fprintln(w, "FAIL")
		}
		results = append(results, checkResult{step: step, ok: ok, detail: detail})
		return ok
	}

	if !check("connect "+cfg.Session.Server, f.Connect(), f.ErrorString()) {
		return printSummary(w, results)
	}

	if v.ExistingDir != "" {
		ok := f.GetDir(v.ExistingDir)
		check("list "+v.ExistingDir, ok, fmt.Sprintf("%d items", f.DirCount()))
	}
	if v.MissingDir != "" {
		ok := f.GetDir(v.MissingDir)
		check("list "+v.MissingDir+" fails", !ok, f.ErrorString())
	}

	if v.File != "" {
		localDir := v.LocalDir
		if localDir == "" {
			localDir = os.TempDir()
		}
		base := path.Base(v.File)
		downloads := []struct {
			name   string
			ttype  int64
			target string
			want   string
		}{
			{name: "binary", ttype: legacy.TransferTypeBinary, target: filepath.Join(localDir, "bin_"+base), want: v.BinarySHA256},
			{name: "ascii", ttype: legacy.TransferTypeASCII, target: filepath.Join(localDir, "asc_"+base), want: v.ASCIISHA256},
		}
		f.SetOverwrite(true)
		for _, d := range downloads {
			step := d.name + " get " + v.File
			if err := f.SetTransferType(d.ttype); err != nil {
				check(step, false, err.Error())
				continue
			}
			if !f.GetFile(v.File, d.target) {
				check(step, false, f.ErrorString())
				continue
			}
			sum, err := fileDigest(d.target)
			if err != nil {
				check(step, false, err.Error())
				continue
			}
			if d.want == "" {
				check(step, true, sum)
				continue
			}
			check(step, strings.EqualFold(sum, d.want), sum)
		}
	}

	return printSummary(w, results)
}

func printSummary(w io.Writer, results []checkResult) bool {
	table := tablewriter.NewWriter(w)
	table.Header("Step", "Result", "Detail")
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row = tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}}
	})

	passed := true
	for _, r := range results {
		result := "pass"
		if !r.ok {
			result = "fail"
			passed = false
		}
		table.Append([]string{r.step, result, r.detail})
	}
	_ = table.Render()
	return passed
}

func fileDigest(p string) (string, error) {
	file, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// runList prints the listing of dir as a numbered table.
func runList(w io.Writer, cfg *config.Config, dir string, opts ...session.Option) error {
	f, err := core.NewFacade(cfg, opts...)
	if err != nil {
		return err
	}
	defer f.Disconnect()

	if !f.GetDir(dir) {
		return fmt.Errorf("list %s: %s", dir, f.ErrorString())
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Name")
	for i := 1; i <= int(f.DirCount()); i++ {
		table.Append([]string{strconv.Itoa(i), f.DirName(i)})
	}
	return table.Render()
}
