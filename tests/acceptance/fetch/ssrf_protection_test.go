package fetch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SSRF Protection", Serial, func() {
	Context("private and reserved targets", func() {
		It("should block a private IPv4 literal", func() {
			response := testEnv.FetchPost(fetchRequest{URL: "http://10.0.0.1/admin"})

			Expect(response.StatusCode).To(Equal(502))
			Expect(response.Body).To(ContainSubstring("private"))
		})

		It("should block the cloud metadata endpoint", func() {
			response := testEnv.FetchPost(fetchRequest{URL: "http://169.254.169.254/latest/meta-data/"})
			Expect(response.StatusCode).To(Equal(502))
		})

		It("should block a loopback IPv6 literal", func() {
			response := testEnv.FetchPost(fetchRequest{URL: "http://[::1]/"})
			Expect(response.StatusCode).To(Equal(502))
		})

		It("should block well-known local hostnames", func() {
			for _, target := range []string{"http://localhost/", "http://metadata.google.internal/"} {
				response := testEnv.FetchPost(fetchRequest{URL: target})
				Expect(response.StatusCode).To(Equal(502), "expected %s to be blocked", target)
			}
		})
	})

	Context("obfuscated IP forms", func() {
		It("should block decimal, octal and hex encodings of dangerous IPs", func() {
			for _, target := range []string{
				"http://2130706433/",          // 127.0.0.1 as decimal
				"http://0x7f000001/",          // 127.0.0.1 as hex
				"http://025177524776/",        // 169.254.169.254 as octal
				"http://0x7f.0x0.0x0.0x1/",    // dotted hex
				"http://0251.0376.0251.0376/", // dotted octal
			} {
				response := testEnv.FetchPost(fetchRequest{URL: target})
				Expect(response.StatusCode).To(Equal(502), "expected %s to be blocked", target)
				Expect(response.Body).To(ContainSubstring("obfuscated"))
			}
		})
	})

	Context("scheme restrictions", func() {
		It("should reject non-HTTP schemes as caller errors", func() {
			for _, target := range []string{
				"file:///etc/passwd",
				"ftp://example.com/",
				"gopher://example.com/",
			} {
				response := testEnv.FetchPost(fetchRequest{URL: target})
				Expect(response.StatusCode).To(Equal(400), "expected %s to be rejected", target)
				Expect(response.Body).To(ContainSubstring("scheme"))
			}
		})
	})

	Context("allowlisted hosts", func() {
		It("should allow the explicitly allowlisted loopback origin", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain"})
			Expect(response.StatusCode).To(Equal(200))
		})
	})
})
