package request_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/t3-cicd/cicd/internal/request"
	"github.com/t3-cicd/cicd/internal/settings"
)

const stagingURL = "https://github.com/wp161/cicd-localrepo.git"

type fakeOracle struct {
	paths       map[string]bool
	gitRepos    map[string]bool
	dirty       map[string]bool
	dirtyErr    error
	hostedRepos map[string]bool
	remoteFiles map[string]bool

	calls []string
}

func (f *fakeOracle) PathExists(path string) bool {
	f.calls = append(f.calls, "path "+path)
	return f.paths[path]
}

func (f *fakeOracle) LocalFileExists(root, rel string) bool {
	f.calls = append(f.calls, "local-file "+rel)
	return f.paths[filepath.Join(root, rel)]
}

func (f *fakeOracle) IsLocalGitRepo(_ context.Context, path string) bool {
	f.calls = append(f.calls, "git-repo "+path)
	return f.gitRepos[path]
}

func (f *fakeOracle) IsDirty(_ context.Context, path string) (bool, error) {
	f.calls = append(f.calls, "dirty "+path)
	if f.dirtyErr != nil {
		return false, f.dirtyErr
	}
	return f.dirty[path], nil
}

func (f *fakeOracle) IsHostedRepo(_ context.Context, url string) bool {
	f.calls = append(f.calls, "hosted "+url)
	return f.hostedRepos[url]
}

func (f *fakeOracle) FileExists(_ context.Context, url, branch, path string) bool {
	f.calls = append(f.calls, "remote-file "+path)
	return f.remoteFiles[url+"@"+branch+":"+path]
}

type fakePublisher struct {
	branch    string
	err       error
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, path string) (string, error) {
	f.published = append(f.published, path)
	if f.err != nil {
		return "", f.err
	}
	return f.branch, nil
}

func (f *fakePublisher) StagingURL() string {
	return stagingURL
}

func strPtr(s string) *string { return &s }

func encode(req request.Request) map[string]any {
	data, err := json.Marshal(req)
	Expect(err).NotTo(HaveOccurred())
	var out map[string]any
	Expect(json.Unmarshal(data, &out)).To(Succeed())
	return out
}

func preconditionMessage(err error) string {
	var pre *request.PreconditionError
	ExpectWithOffset(1, errors.As(err, &pre)).To(BeTrue(), "expected PreconditionError, got %v", err)
	return pre.Msg
}

var _ = Describe("Assembler", func() {
	const (
		remoteRepo = "https://github.com/octo/app"
		localRepo  = "/work/app"
	)

	var (
		ctx       context.Context
		oracle    *fakeOracle
		publisher *fakePublisher
		assembler *request.Assembler
		remote    settings.Settings
		local     settings.Settings
	)

	BeforeEach(func() {
		ctx = context.Background()
		oracle = &fakeOracle{
			paths: map[string]bool{
				localRepo: true,
				filepath.Join(localRepo, request.DefaultConfigPath): true,
				filepath.Join(localRepo, "ci/custom.yml"):           true,
			},
			gitRepos:    map[string]bool{localRepo: true},
			dirty:       map[string]bool{},
			hostedRepos: map[string]bool{remoteRepo: true},
			remoteFiles: map[string]bool{
				remoteRepo + "@main:" + request.DefaultConfigPath: true,
				remoteRepo + "@main:ci/custom.yml":                true,
			},
		}
		publisher = &fakePublisher{branch: "1311768467294899695"}
		assembler = request.New(request.Config{}, oracle, publisher, zerolog.Nop())

		remote = settings.Defaults()
		remote.IsRepoRemote = true
		remote.Repo = strPtr(remoteRepo)
		remote.Server = strPtr("http://localhost:8080")

		local = settings.Defaults()
		local.Repo = strPtr(localRepo)
		local.Server = strPtr("http://localhost:8080")
	})

	Describe("preconditions", func() {
		It("rejects file and pipeline together before anything else", func() {
			_, err := assembler.ResolveRun(ctx, settings.Defaults(), request.RunInput{File: "a.yml", Pipeline: "build"})

			var usage *request.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(usage.Msg).To(Equal("Specify either --file or --pipeline, but not both."))
			Expect(oracle.calls).To(BeEmpty())
			Expect(publisher.published).To(BeEmpty())
		})

		It("rejects a missing repo before touching the file system or network", func() {
			s := remote
			s.Repo = nil

			_, err := assembler.ResolveRun(ctx, s, request.RunInput{})
			Expect(preconditionMessage(err)).To(ContainSubstring("The path/URL of the repo cannot be null"))

			_, err = assembler.ResolveValidate(ctx, s, request.ValidateInput{})
			Expect(preconditionMessage(err)).To(ContainSubstring("cicd config set --repo"))

			Expect(oracle.calls).To(BeEmpty())
		})

		It("rejects a missing server before touching the file system or network", func() {
			s := local
			s.Server = nil

			_, err := assembler.ResolveRun(ctx, s, request.RunInput{})
			Expect(preconditionMessage(err)).To(ContainSubstring("cicd config set --server"))
			Expect(oracle.calls).To(BeEmpty())
			Expect(publisher.published).To(BeEmpty())
		})

		It("rejects malformed overrides as a usage error", func() {
			_, err := assembler.ResolveRun(ctx, remote, request.RunInput{Overrides: []string{"novalue"}})

			var usage *request.UsageError
			Expect(errors.As(err, &usage)).To(BeTrue())
			Expect(oracle.calls).To(BeEmpty())
		})
	})

	Describe("remote repositories", func() {
		It("sends an explicit file that exists without a pipeline name", func() {
			req, err := assembler.ResolveRun(ctx, remote, request.RunInput{File: "ci/custom.yml", Commit: "abc123"})
			Expect(err).NotTo(HaveOccurred())

			body := encode(req)
			Expect(body).To(Equal(map[string]any{
				"repo_url":    remoteRepo,
				"branch":      "main",
				"commit":      "abc123",
				"config_path": "ci/custom.yml",
			}))
			Expect(body).NotTo(HaveKey("pipeline_name"))
			Expect(body).NotTo(HaveKey("override"))
		})

		It("rejects an invalid hosted repository", func() {
			s := remote
			s.Repo = strPtr("https://github.com/octo/missing")

			_, err := assembler.ResolveRun(ctx, s, request.RunInput{})
			Expect(preconditionMessage(err)).To(Equal("Provided repo https://github.com/octo/missing is not a valid public remote Git repo."))
		})

		It("names the file, repo and branch when an explicit file is missing", func() {
			s := remote
			s.Branch = "develop"
			oracle.remoteFiles[remoteRepo+"@develop:"+request.DefaultConfigPath] = true

			_, err := assembler.ResolveRun(ctx, s, request.RunInput{File: "missing.yml"})
			Expect(preconditionMessage(err)).To(Equal("Cannot find file missing.yml in given repo https://github.com/octo/app in develop branch."))
		})

		It("falls back to the default config path", func() {
			req, err := assembler.ResolveValidate(ctx, remote, request.ValidateInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(encode(req)).To(Equal(map[string]any{
				"repo_url":    remoteRepo,
				"branch":      "main",
				"config_path": request.DefaultConfigPath,
			}))
		})

		It("reports a missing default config", func() {
			delete(oracle.remoteFiles, remoteRepo+"@main:"+request.DefaultConfigPath)

			_, err := assembler.ResolveValidate(ctx, remote, request.ValidateInput{})
			Expect(preconditionMessage(err)).To(Equal("Cannot find the default config .cicd-pipelines/pipeline.yml in given repo https://github.com/octo/app in main branch."))
		})

		It("skips config path resolution when a pipeline is named", func() {
			delete(oracle.remoteFiles, remoteRepo+"@main:"+request.DefaultConfigPath)

			req, err := assembler.ResolveRun(ctx, remote, request.RunInput{
				Pipeline:  "build",
				Overrides: []string{"stages.build.image=golang:1.25,timeout=30"},
			})
			Expect(err).NotTo(HaveOccurred())

			body := encode(req)
			Expect(body).NotTo(HaveKey("config_path"))
			Expect(body["pipeline_name"]).To(Equal("build"))
			Expect(body["override"]).To(Equal(map[string]any{
				"stages.build.image": "golang:1.25",
				"timeout":            "30",
			}))
			Expect(oracle.calls).NotTo(ContainElement("remote-file " + request.DefaultConfigPath))
		})

		It("honours a configured default config path", func() {
			assembler = request.New(request.Config{DefaultConfigPath: "ci/custom.yml"}, oracle, publisher, zerolog.Nop())

			req, err := assembler.ResolveValidate(ctx, remote, request.ValidateInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ConfigPath).To(Equal("ci/custom.yml"))
		})
	})

	Describe("local repositories", func() {
		It("publishes a clean tree and sends the staging repository", func() {
			req, err := assembler.ResolveRun(ctx, local, request.RunInput{})
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.published).To(Equal([]string{localRepo}))
			Expect(encode(req)).To(Equal(map[string]any{
				"repo_url":    stagingURL,
				"branch":      "1311768467294899695",
				"config_path": request.DefaultConfigPath,
			}))
		})

		It("refuses to publish a dirty tree", func() {
			oracle.dirty[localRepo] = true

			_, err := assembler.ResolveRun(ctx, local, request.RunInput{})
			Expect(err).To(MatchError(request.ErrDirtyWorkingTree))
			Expect(publisher.published).To(BeEmpty())
		})

		It("publishes directories that are not git repositories without a dirty check", func() {
			delete(oracle.gitRepos, localRepo)

			_, err := assembler.ResolveRun(ctx, local, request.RunInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(oracle.calls).NotTo(ContainElement("dirty " + localRepo))
			Expect(publisher.published).To(HaveLen(1))
		})

		It("reports a missing local path", func() {
			s := local
			s.Repo = strPtr("/work/missing")

			_, err := assembler.ResolveRun(ctx, s, request.RunInput{})
			Expect(preconditionMessage(err)).To(Equal("The path of the repo /work/missing does not exist in the local file system. Please check again."))
			Expect(publisher.published).To(BeEmpty())
		})

		It("reports a missing local file before checking for changes", func() {
			oracle.dirty[localRepo] = true

			_, err := assembler.ResolveRun(ctx, local, request.RunInput{File: "nope.yml"})
			Expect(preconditionMessage(err)).To(Equal("The file 'nope.yml' does not exist in the project root /work/app. Please check again."))
			Expect(oracle.calls).NotTo(ContainElement("dirty " + localRepo))
		})

		It("checks the default config after publishing", func() {
			delete(oracle.paths, filepath.Join(localRepo, request.DefaultConfigPath))

			_, err := assembler.ResolveValidate(ctx, local, request.ValidateInput{})
			Expect(preconditionMessage(err)).To(Equal("The default config '.cicd-pipelines/pipeline.yml' does not exist in the project root /work/app. Please check again."))
			Expect(publisher.published).To(HaveLen(1))
		})

		It("uses an explicit local file as the config path", func() {
			req, err := assembler.ResolveValidate(ctx, local, request.ValidateInput{File: "ci/custom.yml"})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ConfigPath).To(Equal("ci/custom.yml"))
			Expect(req.RepoURL).To(Equal(stagingURL))
		})

		It("wraps publish failures", func() {
			publisher.err = errors.New("push rejected")

			_, err := assembler.ResolveRun(ctx, local, request.RunInput{})
			Expect(err).To(MatchError(ContainSubstring("push rejected")))
			var pre *request.PreconditionError
			Expect(errors.As(err, &pre)).To(BeFalse())
		})

		It("wraps dirty check failures", func() {
			oracle.dirtyErr = errors.New("git status failed")

			_, err := assembler.ResolveRun(ctx, local, request.RunInput{})
			Expect(err).To(MatchError(ContainSubstring("git status failed")))
			Expect(publisher.published).To(BeEmpty())
		})
	})
})
