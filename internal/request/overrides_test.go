package request_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/t3-cicd/cicd/internal/request"
)

var _ = Describe("ParseOverrides", func() {
	It("returns an empty map for no input", func() {
		out, err := request.ParseOverrides()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())

		out, err = request.ParseOverrides("", " ")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
	})

	It("parses a comma separated list", func() {
		out, err := request.ParseOverrides("k1=v1,k2=v2,k3=v3")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]string{"k1": "v1", "k2": "v2", "k3": "v3"}))
	})

	It("merges repeated flags with the last value winning", func() {
		out, err := request.ParseOverrides("image=alpine", "timeout=10", "image=ubuntu")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]string{"image": "ubuntu", "timeout": "10"}))
	})

	It("keeps values opaque", func() {
		out, err := request.ParseOverrides("cmd=make test=all", "retries=03", "empty=")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]string{"cmd": "make test=all", "retries": "03", "empty": ""}))
	})

	It("trims keys but keeps whitespace in values", func() {
		out, err := request.ParseOverrides(" msg = hello world ", "a=1, b=2")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]string{"msg": " hello world ", "a": "1", "b": "2"}))
	})

	DescribeTable("rejects malformed items",
		func(item string) {
			_, err := request.ParseOverrides(item)
			var usage *request.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(usage.Msg).To(ContainSubstring("expected key=value"))
		},
		Entry("missing equals", "image"),
		Entry("empty key", "=value"),
		Entry("second item malformed", "a=1,b"),
	)
})
