package backend

// Config selects and parameterizes a scheduling backend.
type Config struct {
	Name         string // "none" or "slurm"
	SlurmCommand string // Dispatch command for slurm (default "srun")
}
