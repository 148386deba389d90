package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/fiefdx/meshtool"
)

var cli struct {
	Input  string `arg:"" help:"Input OBJ file." type:"existingfile"`
	Output string `arg:"" help:"Output OBJ file for the simplified mesh."`

	TargetTriangles int     `help:"Stop once the triangle count is at or below this." default:"-1"`
	MaxError        float64 `help:"Stop once the next contraction's error exceeds this." default:"-1"`
	Drain           bool    `help:"Contract until the queue has no valid candidates." default:"false"`

	PMOut string `help:"If set, write the reversible contraction history to this path."`
	Quiet bool   `help:"Suppress progress logging."`
}

type zapProgress struct {
	log      *zap.Logger
	total    int
	done     int
	logEvery int
}

func (p *zapProgress) Step() {
	p.done++
	if p.logEvery > 0 && p.done%p.logEvery == 0 {
		p.log.Debug("progress", zap.Int("done", p.done), zap.Int("total", p.total))
	}
}

func main() {
	kong.Parse(&cli, kong.Description("Simplify an OBJ mesh with quadric error metric edge contraction."))

	logger := zap.NewNop()
	if !cli.Quiet {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("meshtoolsimplify failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	obj, err := loadOBJ(cli.Input)
	if err != nil {
		return err
	}
	logger.Info("loaded mesh", zap.Int("vertices", len(obj.vertices)), zap.Int("triangles", len(obj.triangles)))

	var channels []meshtool.ChannelInput
	if len(obj.uvs) > 0 && len(obj.uvTris) == len(obj.triangles) {
		channels = append(channels, meshtool.ChannelInput{Triangles: obj.uvTris, Sources: obj.uvs})
		logger.Info("loaded uv channel", zap.Int("sources", len(obj.uvs)))
	}

	progress := &zapProgress{log: logger, total: len(obj.triangles)*2 + len(obj.vertices), logEvery: 1000}

	s, err := meshtool.New(obj.vertices, obj.triangles, channels, progress)
	if err != nil {
		return err
	}

	switch {
	case cli.Drain:
		for s.ContractOnce() {
		}
	case cli.MaxError >= 0:
		s.ContractUntilError(cli.MaxError)
	case cli.TargetTriangles >= 0:
		s.ContractTo(cli.TargetTriangles)
	default:
		s.ContractTo(len(obj.triangles) / 2)
	}

	if err := s.IsValid(); err != nil {
		return err
	}

	mesh := s.CurrentMesh()
	logger.Info("simplified mesh", zap.Int("vertices", len(mesh.Vertices)), zap.Int("triangles", len(mesh.Triangles)))

	if err := writeOBJ(cli.Output, mesh); err != nil {
		return err
	}

	if cli.PMOut != "" {
		entries := s.GeneratePM()
		if err := writePMStream(cli.PMOut, entries); err != nil {
			return err
		}
		logger.Info("wrote pm history", zap.Int("entries", len(entries)), zap.String("path", cli.PMOut))
	}

	return nil
}
