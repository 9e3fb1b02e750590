package checkpoint

// PathForConfig returns the checkpoint path, a sibling of the config
// file with a .checkpoint suffix.
func PathForConfig(configPath string) string {
	return configPath + ".checkpoint"
}
