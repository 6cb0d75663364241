package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// JUnitDocument builds a JUnit XML document for a summary.
func JUnitDocument(s *Summary) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "urtest")
	suite.CreateAttr("id", s.RunID)
	suite.CreateAttr("tests", strconv.Itoa(s.Total))
	suite.CreateAttr("failures", strconv.Itoa(s.Failed))
	suite.CreateAttr("errors", strconv.Itoa(s.Errored+s.TimedOut))
	suite.CreateAttr("time", seconds(s.Duration))

	for _, r := range s.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", r.Name)
		tc.CreateAttr("classname", strings.TrimSuffix(filepath.ToSlash(r.Name), ".test.script"))
		tc.CreateAttr("time", seconds(r.Duration))

		switch r.Status {
		case StatusPassed:
		case StatusFailed:
			f := tc.CreateElement("failure")
			f.CreateAttr("message", r.Message)
			f.SetText(r.Message)
		default:
			e := tc.CreateElement("error")
			e.CreateAttr("type", string(r.Status))
			e.CreateAttr("message", r.Message)
		}

		if len(r.Output) > 0 {
			tc.CreateElement("system-out").SetText(strings.Join(r.Output, "\n"))
		}
	}

	doc.Indent(2)
	return doc
}

// WriteJUnit writes the JUnit XML report for s to path.
func WriteJUnit(path string, s *Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := JUnitDocument(s).WriteToFile(path); err != nil {
		return fmt.Errorf("writing junit report: %w", err)
	}
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
