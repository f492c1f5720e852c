package examprep

import "log"

// Global verbose flag
var verboseMode bool

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func logGeneration(format string, v ...interface{}) {
	log.Printf("[GEN] "+format, v...)
}

func logQuiz(format string, v ...interface{}) {
	log.Printf("[QUIZ] "+format, v...)
}
