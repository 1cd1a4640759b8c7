package fetch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Basic Fetch Behavior", Serial, func() {
	Context("when fetching an HTML page", func() {
		It("should return simplified markdown content", func() {
			By("Fetching an article page")
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/article"})

			By("Verifying the response is successful")
			Expect(response.StatusCode).To(Equal(200))

			By("Verifying HTML was converted to markdown")
			Expect(response.Body).To(ContainSubstring("Release Notes"))
			Expect(response.Body).To(ContainSubstring("**faster**"))
			Expect(response.Body).NotTo(ContainSubstring("<html"))

			By("Verifying content outside the main element was dropped")
			Expect(response.Body).NotTo(ContainSubstring("site navigation"))
			Expect(response.Body).NotTo(ContainSubstring("footer text"))
		})

		It("should return raw HTML when raw mode is requested", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/article", Raw: true})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring("<main>"))
			Expect(response.Body).To(ContainSubstring("cannot be simplified to markdown"))
		})
	})

	Context("when fetching non-HTML content", func() {
		It("should return the body as-is with a content type notice", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain"})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring("text/plain"))
			Expect(response.Body).To(ContainSubstring("just some plain text"))
		})
	})

	Context("when the origin returns an error status", func() {
		It("should surface the upstream status code in the error message", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/missing"})

			Expect(response.StatusCode).To(Equal(502))
			Expect(response.Body).To(ContainSubstring("status code 404"))
		})
	})

	Context("when the origin redirects", func() {
		It("should not follow the redirect and should name the location", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/redirect"})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring("redirect"))
			Expect(response.Body).To(ContainSubstring("/article"))
		})
	})

	Context("user agent selection", func() {
		It("should send the autonomous user agent by default", func() {
			testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain"})
			Expect(testEnv.LastUserAgent()).To(ContainSubstring("Autonomous"))
		})

		It("should send the manual user agent when requested", func() {
			testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain", Manual: true})
			Expect(testEnv.LastUserAgent()).To(ContainSubstring("User-Specified"))
		})
	})

	Context("parameter validation", func() {
		It("should reject a missing url", func() {
			response := testEnv.FetchPost(fetchRequest{})
			Expect(response.StatusCode).To(Equal(400))
			Expect(response.Body).To(ContainSubstring("invalid-parameter"))
		})

		It("should reject an out-of-range max_length", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain", MaxLength: 1_000_000})
			Expect(response.StatusCode).To(Equal(400))
		})

		It("should reject a negative start_index", func() {
			response := testEnv.FetchPost(fetchRequest{URL: testEnv.Origin.URL + "/plain", StartIndex: -1})
			Expect(response.StatusCode).To(Equal(400))
		})
	})

	Context("GET interface", func() {
		It("should accept url and window parameters as query arguments", func() {
			response := testEnv.FetchGet("url=" + testEnv.Origin.URL + "/plain&max_length=5")

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring("more characters available"))
		})
	})
})
