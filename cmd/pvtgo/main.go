// Command-line tool for resolving PVT solutions from observation scenarios.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archiver/v3"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/de-bkg/gopvt/pkg/gnss"
	"github.com/de-bkg/gopvt/pkg/gtime"
	"github.com/de-bkg/gopvt/pkg/pvt"
)

// scenario is a self contained solving input: a static sky, an apriori
// position and per-epoch candidate observations.
type scenario struct {
	AprioriECEF [3]float64            `json:"apriori_ecef_m"`
	Config      *pvt.Config           `json:"config,omitempty"`
	SkyPosKm    map[string][3]float64 `json:"sky_positions_km"`
	Epochs      []scenarioEpoch       `json:"epochs"`
}

type scenarioEpoch struct {
	T          string              `json:"t"`
	Candidates []scenarioCandidate `json:"candidates"`
}

type scenarioCandidate struct {
	SV        string            `json:"sv"`
	ClockCorr float64           `json:"clock_corr_s"`
	TgdNs     *float64          `json:"tgd_ns,omitempty"`
	Code      []pvt.Observation `json:"code"`
	Phase     []pvt.Observation `json:"phase,omitempty"`
	Doppler   []pvt.Observation `json:"doppler,omitempty"`
}

func main() {
	app := &cli.App{
		Version:   "v0.1.0",
		Compiled:  time.Now(),
		HelpName:  "pvtgo",
		Usage:     "resolve GNSS PVT solutions from observation scenarios",
		ArgsUsage: "[scenario file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "per-candidate solving diagnostics",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "solve",
				Usage:     "Solve every epoch of a scenario",
				UsageText: "solve - resolve one PVT solution per scenario epoch",
				ArgsUsage: "<scenario.json|scenario.zip|scenario.tar.gz>",
				Action:    solveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func solveAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("exactly one scenario file expected")
	}

	scen, err := loadScenario(c.Args().First())
	if err != nil {
		return err
	}

	apriori, err := pvt.NewAprioriPosition(pvt.Coord{
		X: scen.AprioriECEF[0], Y: scen.AprioriECEF[1], Z: scen.AprioriECEF[2],
	})
	if err != nil {
		return err
	}

	cfg := pvt.DefaultConfig()
	if scen.Config != nil {
		cfg = *scen.Config
	}

	solver, err := pvt.New(apriori, cfg, scenarioInterpolator(scen, apriori))
	if err != nil {
		return err
	}

	for _, epoch := range scen.Epochs {
		t, err := gtime.Parse(epoch.T)
		if err != nil {
			return err
		}

		pool, err := buildPool(t, epoch.Candidates)
		if err != nil {
			return err
		}

		_, sol, err := solver.Run(t, pool, nil, nil)
		if err != nil {
			log.Errorf("%v", err)
			continue
		}
		fmt.Printf("%v : %d SV  p=(%.3f %.3f %.3f)m  dt=%.3es  gdop=%.2f  tdop=%.2f\n",
			t, len(sol.SV()), sol.P.X, sol.P.Y, sol.P.Z, sol.Dt, sol.GDOP, sol.TDOP)
	}
	return nil
}

// scenarioInterpolator serves the scenario's static sky positions,
// with azimuth and elevation derived from the apriori position.
func scenarioInterpolator(scen *scenario, apriori pvt.AprioriPosition) pvt.Interpolator {
	return func(t gtime.Epoch, sv gnss.SV, order uint) *pvt.InterpolationResult {
		pos, ok := scen.SkyPosKm[sv.String()]
		if !ok {
			return nil
		}
		az, el := pvt.AzimuthElevation(apriori, pvt.Coord{
			X: pos[0] * 1000.0, Y: pos[1] * 1000.0, Z: pos[2] * 1000.0,
		})
		return &pvt.InterpolationResult{
			SkyPos:    pvt.Coord{X: pos[0], Y: pos[1], Z: pos[2]},
			Elevation: &el,
			Azimuth:   &az,
		}
	}
}

func buildPool(t gtime.Epoch, cands []scenarioCandidate) ([]pvt.Candidate, error) {
	pool := make([]pvt.Candidate, 0, len(cands))
	for _, sc := range cands {
		sv, err := gnss.ParseSV(sc.SV)
		if err != nil {
			return nil, err
		}

		var tgd *gtime.Duration
		if sc.TgdNs != nil {
			d := gtime.FromNanoseconds(*sc.TgdNs)
			tgd = &d
		}

		cand, err := pvt.NewCandidate(sv, t, pvt.Coord{}, gtime.Duration(sc.ClockCorr),
			tgd, sc.Code, sc.Phase, sc.Doppler)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", sv, err)
		}
		pool = append(pool, cand)
	}
	return pool, nil
}

// loadScenario reads a scenario file, transparently unpacking
// compressed bundles first.
func loadScenario(path string) (*scenario, error) {
	name := path

	switch {
	case strings.HasSuffix(path, ".zip"), strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		dir, err := os.MkdirTemp("", "pvtgo")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		if err := archiver.Unarchive(path, dir); err != nil {
			return nil, fmt.Errorf("unpack scenario: %v", err)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil || len(matches) == 0 {
			return nil, fmt.Errorf("no scenario found in %s", path)
		}
		name = matches[0]
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	var scen scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return nil, fmt.Errorf("decode scenario: %v", err)
	}
	if len(scen.Epochs) == 0 {
		return nil, fmt.Errorf("scenario holds no epochs")
	}
	return &scen, nil
}
