package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jaxxstorm/reckon"
)

type ParseCmd struct {
	Version string `arg:"" help:"The version to parse"`
	Format  string `default:"human" enum:"human,json,ini,properties" help:"Output format"`
	ToFile  string `name:"to-file" type:"path" help:"Write the output to a file instead of stdout"`
}

// parsedVersion holds the parse output in the order it is printed.
type parsedVersion struct {
	Version     string `json:"version"`
	Normal      string `json:"normal"`
	StageName   string `json:"stage-name"`
	StageNum    uint64 `json:"stage-num"`
	Significant bool   `json:"significant"`
}

func (p parsedVersion) fields() [][2]string {
	return [][2]string{
		{"version", p.Version},
		{"normal", p.Normal},
		{"stage-name", p.StageName},
		{"stage-num", fmt.Sprint(p.StageNum)},
		{"significant", fmt.Sprint(p.Significant)},
	}
}

func (c *ParseCmd) Run() error {
	v, err := reckon.ParseVersion(c.Version)
	if err != nil {
		return fmt.Errorf("version %q is not semver compliant, refer to the spec https://semver.org/spec/v2.0.0.html", c.Version)
	}

	parsed := parsedVersion{
		Version:     v.String(),
		Normal:      v.Normal().String(),
		StageName:   reckon.FinalStage,
		Significant: v.IsSignificant(),
	}
	if stage, ok := v.Stage(); ok {
		parsed.StageName = stage.Name
		parsed.StageNum = stage.Num
	}

	output, err := formatParsed(parsed, c.Format)
	if err != nil {
		return err
	}

	if c.ToFile == "" {
		fmt.Println(output)
		return nil
	}
	if err := os.WriteFile(c.ToFile, []byte(output), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.ToFile, err)
	}
	return nil
}

func formatParsed(p parsedVersion, format string) (string, error) {
	var lines []string
	switch format {
	case "human", "":
		for _, f := range p.fields() {
			lines = append(lines, fmt.Sprintf("%-12s %s", f[0], f[1]))
		}
	case "json":
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "ini", "properties":
		for _, f := range p.fields() {
			lines = append(lines, f[0]+"="+f[1])
		}
	default:
		return "", &reckon.Error{
			Kind:    reckon.KindInput,
			Message: fmt.Sprintf("invalid format %q, must be human, json, ini, or properties", format),
		}
	}
	return strings.Join(lines, "\n"), nil
}
