package configtest

import (
	"fmt"
	"strings"
)

// PrintURLTestResult prints a URL policy verdict in the config-test format
func PrintURLTestResult(result *URLTestResult) {
	fmt.Printf("\n=== URL: %s ===\n", result.URL)
	fmt.Printf("Normalized URL: %s\n", result.NormalizedURL)
	fmt.Printf("URL Key: %s\n", result.URLKey)
	fmt.Println()

	if !result.Allowed {
		fmt.Println("Verdict: BLOCKED")
		if result.ErrorCode != "" {
			fmt.Printf("Error Code: %s\n", result.ErrorCode)
		}
		if result.ErrorKind != "" {
			fmt.Printf("Error Kind: %s\n", result.ErrorKind)
		}
		fmt.Printf("Reason: %s\n", result.ErrorMessage)
		return
	}

	fmt.Println("Verdict: ALLOWED")
	fmt.Printf("Classification: %s\n", result.Classification)
	if len(result.ResolvedIPs) > 0 {
		fmt.Printf("Resolved IPs: %s\n", strings.Join(result.ResolvedIPs, ", "))
	}
}
