package testutil

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkp/pln/models"
)

// FindTransitionsInLog returns the transitions for one deposit from
// a pipeline JSON log, oldest first.
func FindTransitionsInLog(pathToLogFile, depositUuid string) ([]models.Transition, error) {
	file, err := os.Open(pathToLogFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return FindTransitions(file, depositUuid)
}

// FindTransitions reads JSON transition lines from reader and keeps
// those for depositUuid. Lines that are not transitions are skipped.
func FindTransitions(reader io.Reader, depositUuid string) ([]models.Transition, error) {
	transitions := make([]models.Transition, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		transition := models.Transition{}
		if err := json.Unmarshal([]byte(line), &transition); err != nil {
			continue
		}
		if transition.DepositUuid == depositUuid {
			transitions = append(transitions, transition)
		}
	}
	return transitions, scanner.Err()
}
