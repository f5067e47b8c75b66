package icp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML-facing shape of Config; string enums are accepted
// for weighting/rotation/transform so the on-disk format stays readable.
type fileConfig struct {
	M                    int     `yaml:"m"`
	NR                   int     `yaml:"nr"`
	ColourWeight         float64 `yaml:"a"`
	ScaleDamping         float64 `yaml:"c"`
	WeightEpsilon        float64 `yaml:"weightEpsilon"`
	Weighting            string  `yaml:"weighting"`
	Rotation             string  `yaml:"rotation"`
	Transform            string  `yaml:"transform"`
	MaxIterations        int     `yaml:"maxIterations"`
	AngleThreshold       float64 `yaml:"angleThreshold"`
	TranslationThreshold float64 `yaml:"translationThreshold"`
}

// LoadConfig loads an icp.Config from a YAML file, filling unset fields
// from DefaultConfig and validating the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("icp: config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("icp: reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("icp: parsing config YAML: %w", err)
	}

	cfg := DefaultConfig()
	if fc.M != 0 {
		cfg.M = fc.M
	}
	if fc.NR != 0 {
		cfg.NR = fc.NR
	}
	if fc.ColourWeight != 0 {
		cfg.ColourWeight = fc.ColourWeight
	}
	if fc.ScaleDamping != 0 {
		cfg.ScaleDamping = fc.ScaleDamping
	}
	if fc.WeightEpsilon != 0 {
		cfg.WeightEpsilon = fc.WeightEpsilon
	}
	if fc.MaxIterations != 0 {
		cfg.MaxIterations = fc.MaxIterations
	}
	if fc.AngleThreshold != 0 {
		cfg.AngleThreshold = fc.AngleThreshold
	}
	if fc.TranslationThreshold != 0 {
		cfg.TranslationThreshold = fc.TranslationThreshold
	}

	if w, err := parseWeighting(fc.Weighting); err != nil {
		return Config{}, err
	} else if fc.Weighting != "" {
		cfg.Weighting = w
	}
	if r, err := parseRotation(fc.Rotation); err != nil {
		return Config{}, err
	} else if fc.Rotation != "" {
		cfg.Rotation = r
	}
	if t, err := parseTransformMethod(fc.Transform); err != nil {
		return Config{}, err
	} else if fc.Transform != "" {
		cfg.Transform = t
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseWeighting(s string) (Weighting, error) {
	switch s {
	case "", "unweighted":
		return Unweighted, nil
	case "distance-weighted", "weighted":
		return DistanceWeighted, nil
	default:
		return 0, fmt.Errorf("icp: unknown weighting %q", s)
	}
}

func parseRotation(s string) (RotationMethod, error) {
	switch s {
	case "", "svd", "SVD":
		return RotationSVD, nil
	case "power-method", "PowerMethod", "power":
		return RotationPowerMethod, nil
	default:
		return 0, fmt.Errorf("icp: unknown rotation method %q", s)
	}
}

func parseTransformMethod(s string) (TransformMethod, error) {
	switch s {
	case "", "quaternion":
		return TransformQuaternion, nil
	case "matrix":
		return TransformMatrix, nil
	default:
		return 0, fmt.Errorf("icp: unknown transform method %q", s)
	}
}

func weightingString(w Weighting) string {
	if w == DistanceWeighted {
		return "distance-weighted"
	}
	return "unweighted"
}

func rotationString(r RotationMethod) string {
	if r == RotationPowerMethod {
		return "power-method"
	}
	return "svd"
}

func transformMethodString(t TransformMethod) string {
	if t == TransformMatrix {
		return "matrix"
	}
	return "quaternion"
}

// SaveConfig writes cfg to path as YAML, for persisting an operator's tuned
// configuration alongside a recorded-cloud dataset.
func SaveConfig(path string, cfg Config) error {
	fc := fileConfig{
		M:                    cfg.M,
		NR:                   cfg.NR,
		ColourWeight:         cfg.ColourWeight,
		ScaleDamping:         cfg.ScaleDamping,
		WeightEpsilon:        cfg.WeightEpsilon,
		Weighting:            weightingString(cfg.Weighting),
		Rotation:             rotationString(cfg.Rotation),
		Transform:            transformMethodString(cfg.Transform),
		MaxIterations:        cfg.MaxIterations,
		AngleThreshold:       cfg.AngleThreshold,
		TranslationThreshold: cfg.TranslationThreshold,
	}
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("icp: marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("icp: writing config file: %w", err)
	}
	return nil
}
