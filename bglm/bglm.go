/*

Bglm fits Bayesian generalized linear models by MCMC and evaluates
them with approximate leave-one-out cross-validation (PSIS-LOO), WAIC
and K-fold cross-validation.

The basic usage looks like this:

	bglm -loo dataset.csv y

, this will fit a gaussian model of the column y on every other column
and report PSIS-LOO.

You can change the family and the evaluation:

	bglm -family poisson -kfold 10 dataset.csv counts

To see all the options run:

	bglm -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	"github.com/harleyjean/rstanarm/bayes"
	"github.com/harleyjean/rstanarm/checkpoint"
	"github.com/harleyjean/rstanarm/glm"
	"github.com/harleyjean/rstanarm/loo"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("bglm")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("bglm", "bayesian GLM fitting and evaluation").Version(version)

	// input dataset
	dataFileName = app.Arg("dataset", "CSV dataset with a header row").Required().ExistingFile()
	response     = app.Arg("response", "response column name").Required().String()

	// model parameters
	familyName = app.Flag("family", "distributional family "+
		"(gaussian, binomial, poisson, neg_binomial_2, gamma, inverse_gaussian, ordered_probit)").
		Default("gaussian").String()
	linkName   = app.Flag("link", "link function (family canonical link by default)").String()
	predictors = app.Flag("predictors", "comma-separated predictor columns (all non-response columns by default)").String()
	weightsCol = app.Flag("weights", "observation weights column").String()
	trialsCol  = app.Flag("trials", "binomial trial counts column").String()
	ncat       = app.Flag("ncat", "number of ordinal categories (inferred from the response by default)").Int()
	method     = app.Flag("method", "fitting method (sample: MCMC, optimize: posterior mode)").
			Default("sample").Enum("sample", "optimize")

	// sampler parameters
	chains = app.Flag("chains", "number of MCMC chains").Default("4").Int()
	iter   = app.Flag("iter", "number of kept draws per chain").Default("1000").Int()
	warmup = app.Flag("warmup", "number of warmup draws per chain (iter by default)").Int()

	// evaluation
	runLoo     = app.Flag("loo", "compute PSIS-LOO").Bool()
	refit      = app.Flag("refit", "refit the model for observations the tail diagnostic flags").Bool()
	kThreshold = app.Flag("kthreshold", "Pareto k triage threshold (min(1-1/log10(N), 0.7) by default)").Float64List()
	runWaic    = app.Flag("waic", "compute WAIC").Bool()
	kfoldK     = app.Flag("kfold", "run K-fold cross-validation with the given K").Int()

	// technical
	nThreads  = app.Flag("nt", "number of threads to use").Int()
	seed      = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	ckpFile   = app.Flag("checkpoint", "bolt database file for sampler checkpoints").String()
	ckpPeriod = app.Flag("ckpperiod", "checkpoint period in seconds").Default("30").Float64()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// splitPredictors turns the comma-separated flag into a name list.
func splitPredictors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func run() (summary *RunSummary) {
	startTime := time.Now()
	summary = &RunSummary{}

	family, err := glm.ParseFamily(*familyName)
	if err != nil {
		log.Fatal(err)
	}

	dataFile, err := os.Open(*dataFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer dataFile.Close()
	ds, err := readDataset(dataFile)
	if err != nil {
		log.Fatal("Error reading dataset: ", err)
	}

	intercept := family != glm.OrderedProbit
	data, names, err := ds.modelData(*response, splitPredictors(*predictors),
		*weightsCol, *trialsCol, intercept, *ncat)
	if err != nil {
		log.Fatal(err)
	}
	if family == glm.OrderedProbit && data.NCat == 0 {
		maxY := 0.0
		for _, y := range data.Y {
			maxY = math.Max(maxY, y)
		}
		data.NCat = int(maxY)
		log.Infof("Inferred %d ordinal categories", data.NCat)
	}
	log.Infof("Read %d observations, %d predictors", data.NObs(), data.NPred())
	summary.NObs = data.NObs()

	spec := bayes.NewSpec(family, data)
	spec.Names = names
	spec.Intercept = intercept
	spec.Chains = *chains
	spec.Iter = *iter
	spec.Warmup = *warmup
	spec.Seed = *seed
	if *linkName != "" {
		if spec.Link, err = glm.ParseLink(*linkName); err != nil {
			log.Fatal(err)
		}
	}
	summary.Family = family.String()
	summary.Link = spec.Link.String()
	log.Infof("Model: %v family, %v link", family, spec.Link)

	if *ckpFile != "" {
		store, err := checkpoint.Open(*ckpFile, *response, *ckpPeriod)
		if err != nil {
			log.Fatal("Error opening checkpoint database: ", err)
		}
		defer store.Close()
		spec.Checkpoint = store
	}

	var fit *bayes.Fit
	if *method == "optimize" {
		log.Info("Using posterior-mode optimization")
		fit, err = bayes.Optimize(spec)
	} else {
		log.Infof("Sampling %d chains, %d+%d draws", spec.Chains, spec.Warmup, spec.Iter)
		fit, err = bayes.Sample(spec)
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(fit)
	summary.Posterior = fit.Summary(0.9)

	opts := &loo.Options{
		KThreshold: *kThreshold,
		Refit:      *refit,
		Workers:    runtime.GOMAXPROCS(0),
	}
	if *runLoo {
		res, err := loo.Compute(fit, opts)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res)
		summary.Loo = res
	}
	if *runWaic {
		res, err := loo.Waic(fit)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res)
		summary.Waic = res
	}
	if *kfoldK > 0 {
		res, err := loo.Kfold(fit, *kfoldK, opts)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res)
		summary.Kfold = res
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	return
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, pkg := range []string{"bglm", "bayes", "loo", "glm", "checkpoint"} {
		logging.SetLevel(level, pkg)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	if *nThreads > 0 {
		runtime.GOMAXPROCS(*nThreads)
	}
	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.\n", effectiveNThreads)

	summary := run()
	summary.NThreads = effectiveNThreads
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = *seed

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
