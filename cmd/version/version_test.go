package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/recall/cmd/version"
	"github.com/papercomputeco/recall/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	It("prints the build information", func() {
		var out bytes.Buffer
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("recall " + utils.Version + "\n"))
		Expect(out.String()).To(ContainSubstring("Sha: " + utils.Sha))
	})
})
