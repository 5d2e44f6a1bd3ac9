package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

// Step 场景中的一步：按 kind/index 发布 value，重复 repeat 次，每次递增 step
type Step struct {
	Kind   string  `yaml:"kind" toml:"kind"`
	Index  int     `yaml:"index" toml:"index"`
	Value  float64 `yaml:"value" toml:"value"`
	Step   float64 `yaml:"step" toml:"step"`
	Repeat int     `yaml:"repeat" toml:"repeat"`
}

// Scenario 场景文件
type Scenario struct {
	Name  string `yaml:"name" toml:"name"`
	Steps []Step `yaml:"steps" toml:"steps"`
}

// LoadScenario 读取并校验场景；.toml 按 TOML 解析，其余按 YAML
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseScenarioTOML(data)
	}
	return ParseScenario(data)
}

// ParseScenario 解析并校验 YAML 场景
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return validate(&sc)
}

// ParseScenarioTOML 解析并校验 TOML 场景（[[steps]] 数组表）
func ParseScenarioTOML(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return validate(&sc)
}

func validate(sc *Scenario) (*Scenario, error) {
	if len(sc.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i, st := range sc.Steps {
		if _, err := st.reading(0); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return sc, nil
}

func (s Step) reading(n int) (can.Reading, error) {
	kind, ok := can.ParseKind(s.Kind)
	if !ok {
		return can.Reading{}, fmt.Errorf("unknown kind %q", s.Kind)
	}
	if kind == can.KindButton {
		return can.Reading{}, errors.New("button frames are published by the dashboard")
	}
	if _, err := can.IDFor(kind, s.Index); err != nil {
		return can.Reading{}, err
	}
	return can.Reading{Kind: kind, Index: s.Index, Value: s.Value + float64(n)*s.Step}, nil
}

func (s Step) times() int {
	if s.Repeat <= 0 {
		return 1
	}
	return s.Repeat
}

// ReadingPublisher 场景执行所需的发布能力
type ReadingPublisher interface {
	Publish(ctx context.Context, r can.Reading) error
}

// Runner 以固定节奏执行场景
type Runner struct {
	pub   ReadingPublisher
	pacer *Pacer
	log   *zap.Logger
}

// NewRunner 创建场景执行器
func NewRunner(pub ReadingPublisher, pacer *Pacer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{pub: pub, pacer: pacer, log: log}
}

// RunResult 一次执行的统计
type RunResult struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Passes    int `json:"passes"`
}

// Run 执行场景；loop 为 true 时循环直到 ctx 取消。
// 单帧发布失败（例如发动机小时回退被拒）只记录，不中断场景。
func (r *Runner) Run(ctx context.Context, sc *Scenario, loop bool) (RunResult, error) {
	var res RunResult
	r.log.Info("scenario started", zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)), zap.Bool("loop", loop))
	for {
		for _, st := range sc.Steps {
			for n := 0; n < st.times(); n++ {
				reading, err := st.reading(n)
				if err != nil {
					return res, err
				}
				if err := r.pacer.Wait(ctx); err != nil {
					return res, err
				}
				if err := r.pub.Publish(ctx, reading); err != nil {
					res.Failed++
					r.log.Debug("scenario step not published", zap.String("kind", st.Kind), zap.Error(err))
					continue
				}
				res.Published++
			}
		}
		res.Passes++
		if !loop {
			r.log.Info("scenario finished", zap.String("name", sc.Name),
				zap.Int("published", res.Published), zap.Int("failed", res.Failed),
				zap.Int64("paced", r.pacer.Stats().SentTotal))
			return res, nil
		}
	}
}
