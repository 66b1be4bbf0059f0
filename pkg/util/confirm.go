package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ConfirmDanger warns about a destructive flash operation (mass erase,
// a program that will erase covering sectors) and proceeds only if the
// user explicitly types "yes".
func ConfirmDanger(operation string) bool {
	fmt.Printf("\n⚠️  WARNING: %s\n", operation)
	fmt.Println("This operation cannot be undone.")
	fmt.Print("\nType 'yes' to confirm: ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes"
}
