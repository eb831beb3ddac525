package config_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cohortsim/config"
	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/rates"
)

const sample = `
interval:
  base: 2020
  launch: 2022
  horizon: 2030
seed: 11
policy: largest
inputs:
  database: inputs.sqlite3
  controls: controls.yaml
  rate_years:
    2021: 2020
    2022: 2019
output:
  path: out
monitor:
  enabled: false
warehouse:
  version: "1.2"
`

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

func touch(path string) {
	Expect(os.WriteFile(path, nil, 0o600)).To(Succeed())
}

var _ = Describe("Config", func() {
	It("should decode the file over the defaults", func() {
		cfg, err := config.Parse(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Interval).To(Equal(config.Interval{
			Base: 2020, Launch: 2022, Horizon: 2030,
		}))
		Expect(cfg.Seed).To(Equal(uint64(11)))
		Expect(cfg.MaleFraction).To(Equal(0.512))
		Expect(cfg.Inputs.RateYears).To(Equal(rates.YearMap{2021: 2020, 2022: 2019}))
		Expect(cfg.Monitor.Enabled).To(BeFalse())
		Expect(cfg.Warehouse.Version).To(Equal("1.2"))

		policy, err := cfg.IntegerizePolicy()
		Expect(err).NotTo(HaveOccurred())
		Expect(policy).To(Equal(integerize.PolicyLargest))
	})

	It("should accept an empty file", func() {
		cfg, err := config.Parse(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("should reject unknown keys", func() {
		_, err := config.Parse(strings.NewReader("sed: 1\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should apply environment overrides", func() {
		setenv("COHORTSIM_SEED", "99")
		setenv("COHORTSIM_WAREHOUSE_DSN", "postgres://localhost/ccm")
		setenv("COHORTSIM_S3_SECRET_ACCESS_KEY", "secret")

		cfg, err := config.Parse(strings.NewReader(sample))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Seed).To(Equal(uint64(99)))
		Expect(cfg.Warehouse.DSN).To(Equal("postgres://localhost/ccm"))
		Expect(cfg.Export.SecretAccessKey).To(Equal("secret"))
	})

	It("should fail on a malformed override", func() {
		setenv("COHORTSIM_SEED", "many")

		_, err := config.Parse(strings.NewReader(sample))
		Expect(err).To(HaveOccurred())
	})

	It("should load a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run.yaml")
		Expect(os.WriteFile(path, []byte(sample), 0o600)).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Output.Path).To(Equal("out"))
	})

	It("should fail to load a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "none.yaml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	Describe("Validate", func() {
		var (
			dir string
			cfg config.Config
		)

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			touch(filepath.Join(dir, "inputs.sqlite3"))
			touch(filepath.Join(dir, "controls.yaml"))

			cfg = config.Default()
			cfg.Interval = config.Interval{Base: 2020, Launch: 2022, Horizon: 2030}
			cfg.Inputs.Database = filepath.Join(dir, "inputs.sqlite3")
			cfg.Inputs.Controls = filepath.Join(dir, "controls.yaml")
			cfg.Output.Path = filepath.Join(dir, "out")
		})

		It("should accept a complete configuration", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		DescribeTable("should reject",
			func(mutate func(c *config.Config)) {
				mutate(&cfg)
				Expect(cfg.Validate()).To(MatchError(config.ErrInvalid))
			},
			Entry("a base year before the blended base", func(c *config.Config) {
				c.Interval.Base = 2019
			}),
			Entry("an interval after the blended base", func(c *config.Config) {
				c.Interval = config.Interval{Base: 2030, Launch: 2030, Horizon: 2030}
			}),
			Entry("a launch year after the blended base", func(c *config.Config) {
				c.Interval = config.Interval{Base: 2020, Launch: 2035, Horizon: 2035}
			}),
			Entry("a launch year before the base", func(c *config.Config) {
				c.Interval.Launch = 2019
			}),
			Entry("a horizon before the launch", func(c *config.Config) {
				c.Interval.Horizon = 2021
			}),
			Entry("an unknown policy", func(c *config.Config) {
				c.Policy = "nearest"
			}),
			Entry("a male fraction of one", func(c *config.Config) {
				c.MaleFraction = 1
			}),
			Entry("a missing input database", func(c *config.Config) {
				c.Inputs.Database = filepath.Join(dir, "none.sqlite3")
			}),
			Entry("no controls", func(c *config.Config) {
				c.Inputs.Controls = ""
			}),
			Entry("no output path", func(c *config.Config) {
				c.Output.Path = ""
			}),
			Entry("a monitor port without monitoring", func(c *config.Config) {
				c.Monitor = config.Monitor{Port: 8080}
			}),
		)

		It("should refuse to overwrite an existing output", func() {
			touch(filepath.Join(dir, "out.sqlite3"))

			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrInvalid))
			Expect(err).To(MatchError(datarecording.ErrFileExists))

			cfg.Output.Overwrite = true
			Expect(cfg.Validate()).To(Succeed())
		})
	})
})
