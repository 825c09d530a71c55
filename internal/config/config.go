package config

import "github.com/caarlos0/env/v11"

// Config is the process configuration of the scheduling service, parsed
// from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port         string `env:"PORT" envDefault:"8080"`
		ReadTimeout  int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"120"`
		IdleTimeout  int    `env:"IDLE_TIMEOUT" envDefault:"60"`
	} `envPrefix:"SERVER_"`
	Solver struct {
		TimeBudget     int   `env:"TIME_BUDGET" envDefault:"30"`
		Neighborhood   int   `env:"NEIGHBORHOOD" envDefault:"64"`
		TabuTenure     int   `env:"TABU_TENURE" envDefault:"16"`
		LateAcceptance int   `env:"LATE_ACCEPTANCE" envDefault:"64"`
		Workers        int   `env:"WORKERS" envDefault:"0"`
		Seed           int64 `env:"SEED" envDefault:"0"`
		StopOnFeasible bool  `env:"STOP_ON_FEASIBLE" envDefault:"false"`
	} `envPrefix:"SOLVER_"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
