package fetch_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Content Pagination", Serial, func() {
	longURL := func() string { return testEnv.Origin.URL + "/long" }

	Context("when content exceeds max_length", func() {
		It("should window the content and describe how to continue", func() {
			response := testEnv.FetchPost(fetchRequest{URL: longURL(), MaxLength: 100})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring(strings.Repeat("a", 100)))
			Expect(response.Body).To(ContainSubstring("400 more characters available"))
			Expect(response.Body).To(ContainSubstring("Use <max_length=200> to get more content on the next fetch"))
			Expect(response.Body).To(ContainSubstring("Use <start_index=100> to start from this point on the next fetch"))
		})

		It("should continue from start_index on a follow-up fetch", func() {
			response := testEnv.FetchPost(fetchRequest{URL: longURL(), MaxLength: 400, StartIndex: 100})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring(strings.Repeat("a", 400)))
			Expect(response.Body).NotTo(ContainSubstring("more characters available"))
		})
	})

	Context("when start_index is past the end of content", func() {
		It("should report that no more content is available", func() {
			response := testEnv.FetchPost(fetchRequest{URL: longURL(), MaxLength: 100, StartIndex: 5000})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring("<e>No more content available.</e>"))
		})
	})

	Context("when content fits in one window", func() {
		It("should return the full content without a continuation trailer", func() {
			response := testEnv.FetchPost(fetchRequest{URL: longURL(), MaxLength: 5000})

			Expect(response.StatusCode).To(Equal(200))
			Expect(response.Body).To(ContainSubstring(strings.Repeat("a", 500)))
			Expect(response.Body).NotTo(ContainSubstring("more characters available"))
		})
	})
})
