package request

// DefaultConfigPath is the pipeline configuration used when neither a file nor
// a pipeline name is selected.
const DefaultConfigPath = ".cicd-pipelines/pipeline.yml"

// Config captures the runtime controls the assembler needs.
type Config struct {
	// DefaultConfigPath overrides DefaultConfigPath when set.
	DefaultConfigPath string
}

func (c Config) defaultConfigPath() string {
	if c.DefaultConfigPath == "" {
		return DefaultConfigPath
	}
	return c.DefaultConfigPath
}
