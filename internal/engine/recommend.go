package engine

// Training module catalog. What content each module contains is the
// generative service's concern; the engine only names modules.
const (
	ModuleSecureCoding      = "Secure Coding Fundamentals"
	ModuleSecretsInGit      = "Managing Secrets in Git"
	ModuleCloudIdentity     = "Cloud Identity Best Practices"
	ModulePhishingAwareness = "Phishing Awareness 101"
	ModuleTrainingCatchUp   = "Security Training Catch-Up"
)

// RecommendModules maps per-source sub-scores to training modules with
// simple threshold rules. Order is stable for deterministic output.
func RecommendModules(subScores map[Source]float64) []string {
	modules := make([]string, 0, 5)

	if subScores[SourceGit] > 0.3 {
		modules = append(modules, ModuleSecureCoding, ModuleSecretsInGit)
	}
	if subScores[SourceIAM] > 0.3 {
		modules = append(modules, ModuleCloudIdentity)
	}
	if subScores[SourceSIEM] > 0.2 {
		modules = append(modules, ModulePhishingAwareness)
	}
	if subScores[SourceTraining] > 0.3 {
		modules = append(modules, ModuleTrainingCatchUp)
	}

	return modules
}
