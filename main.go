// HCTRA: HCT Recovery Analysis Library
// Copyright (c) 2026 HCTRA contributors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"hctra/app"
	"hctra/compare"
	"hctra/plot"
	"hctra/study"
	"hctra/warning"
)

/*
Hctra is a tool for analyzing recovery after hematopoietic cell transplantation
(HCT) from day-level wearable and self-report data of patients and their
caregivers.

Usage:
	hctra physioFile psychFile eventsFile outputPath [flags]

Example:
	hctra physiological_dataset_day.csv psych_behavioral_dataset_day.csv events_infections.csv ./out/
	--alpha 0.05 --minGroupSamples 2 --preStart -7 --preEnd -1 --baseStart -30 --baseEnd -14
	--pctDrop -0.15 --sdDrop -0.5 --plots --name hct1

The flags are:

--alpha nr
	The significance level used for rejecting null hypotheses after false
	discovery rate correction. Every group comparison of one run forms one
	correction family per contrast.
--minGroupSamples nr
	The minimum number of non-missing observations required in each cohort for a
	metric to be tested. Metrics below this threshold are skipped, not reported.
--minCorrSamples nr
	The minimum number of same-day observation pairs required for a correlation
	to be reported.
--preStart nr / --preEnd nr
	The pre-event window, in days relative to the event day. The window is
	inclusive on both ends.
--baseStart nr / --baseEnd nr
	The baseline window, in days relative to the event day. The baseline is
	taken from each participant's own history; there is no population baseline.
--pctDrop nr
	The relative drop threshold for flagging an event, e.g. -0.15 flags events
	where the pre-event mean dropped at least 15% below the baseline mean.
--sdDrop nr
	The standardized drop threshold for flagging an event, in baseline standard
	deviations.
--minWindowSamples nr
	The minimum number of non-missing observations required in each window for
	an event to be summarized for a metric.
--minPerDay nr
	The minimum daily sample size for a day to appear in the recovery
	trajectory curves.
--maWindow nr / --maMinPoints nr
	The centered moving average window for the recovery curves, and the minimum
	number of points required to compute the average at a position.
--physioMetrics m1,m2,...
	The physiological metrics to analyze. Defaults to every metric column of the
	physiological dataset.
--psychMetrics m1,m2,...
	The psychological metrics to analyze. Defaults to every metric column of the
	psychological dataset.
--pfilters patients | caregivers | male | female
	A list of filters for selecting participants on which the analysis runs.
--buildFrom dir
	Rebuild the three inputs from a raw study export directory instead of
	reading the given day-level files. The positional file arguments are ignored
	when this flag is passed.
--plots
	Also render recovery trajectory, cohort mean, and pre-event drift figures.
--name string
	Sets the name of the experiment. This name is used to generate names for
	output files.
--nrOfThreads nr
	The number of threads hctra uses.
*/

const (
	programVersion = 0.1
	programName    = "hctra"
)

func programMessage() string {
	return fmt.Sprint(programName, " version ", programVersion, " compiled with ", runtime.Version())
}

const hctraHelp = "\nhctra parameters:\n" +
	"hctra physioFile psychFile eventsFile outputPath \n" +
	"[--alpha nr]\n" +
	"[--minGroupSamples nr]\n" +
	"[--minCorrSamples nr]\n" +
	"[--preStart nr]\n" +
	"[--preEnd nr]\n" +
	"[--baseStart nr]\n" +
	"[--baseEnd nr]\n" +
	"[--pctDrop nr]\n" +
	"[--sdDrop nr]\n" +
	"[--minWindowSamples nr]\n" +
	"[--minPerDay nr]\n" +
	"[--maWindow nr]\n" +
	"[--maMinPoints nr]\n" +
	"[--physioMetrics m1,m2,...]\n" +
	"[--psychMetrics m1,m2,...]\n" +
	"[--pfilters patients | caregivers | male | female ]\n" +
	"[--buildFrom dir]\n" +
	"[--plots]\n" +
	"[--name string]\n" +
	"[--nrOfThreads nr]\n"

func parseFlags(flags flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(ioutil.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprint(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprint(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func getFileName(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	return s
}

func getParticipantFilter(s string) study.ParticipantFilter {
	id := func(p *study.Participant) bool { return true }
	switch s {
	case "id":
		return id
	case "patients":
		return study.PatientFilter()
	case "caregivers":
		return study.CaregiverFilter()
	case "male":
		return study.GenderFilter("Male")
	case "female":
		return study.GenderFilter("Female")
	default:
		return id
	}
}

func getParticipantFilters(f string) []study.ParticipantFilter {
	fs := strings.Split(f, ",")
	result := []study.ParticipantFilter{}
	for _, f := range fs {
		result = append(result, getParticipantFilter(f))
	}
	return result
}

func getMetrics(f string, ds *study.Dataset) []string {
	if f == "" {
		return ds.Metrics
	}
	metrics := []string{}
	for _, m := range strings.Split(f, ",") {
		metrics = append(metrics, strings.TrimSpace(m))
	}
	return metrics
}

// plotMetrics are the physiological metrics rendered as recovery trajectory
// figures when plotting is requested.
var plotMetrics = []string{"total_steps", "percent_active", "mean_hr", "sleep_duration"}

func main() {
	var (
		// required parameters
		physioFile string //The day-level physiological dataset.
		psychFile  string //The day-level psychological/behavioral dataset.
		eventsFile string //The infection event table.
		outputPath string //The path where output files are written.
		// optional flags
		alpha            float64
		minGroupSamples  int
		minCorrSamples   int
		preStart         float64
		preEnd           float64
		baseStart        float64
		baseEnd          float64
		pctDrop          float64
		sdDrop           float64
		minWindowSamples int
		minPerDay        int
		maWindow         int
		maMinPoints      int
		physioMetrics    string
		psychMetrics     string
		pfilters         string
		buildFrom        string
		plots            bool
		name             string
		nrOfThreads      int
	)
	var flags flag.FlagSet
	// options for the hctra command
	flags.Float64Var(&alpha, "alpha", 0.05, "The significance level for rejecting null hypotheses "+
		"after false discovery rate correction.")
	flags.IntVar(&minGroupSamples, "minGroupSamples", 2, "The minimum number of non-missing "+
		"observations per cohort for a metric to be tested.")
	flags.IntVar(&minCorrSamples, "minCorrSamples", 20, "The minimum number of same-day "+
		"observation pairs for a correlation to be reported.")
	flags.Float64Var(&preStart, "preStart", -7, "The start of the pre-event window, in days "+
		"relative to the event.")
	flags.Float64Var(&preEnd, "preEnd", -1, "The end of the pre-event window, in days relative "+
		"to the event.")
	flags.Float64Var(&baseStart, "baseStart", -30, "The start of the baseline window, in days "+
		"relative to the event.")
	flags.Float64Var(&baseEnd, "baseEnd", -14, "The end of the baseline window, in days relative "+
		"to the event.")
	flags.Float64Var(&pctDrop, "pctDrop", -0.15, "The relative drop threshold for flagging an "+
		"event.")
	flags.Float64Var(&sdDrop, "sdDrop", -0.5, "The standardized drop threshold for flagging an "+
		"event, in baseline standard deviations.")
	flags.IntVar(&minWindowSamples, "minWindowSamples", 2, "The minimum number of non-missing "+
		"observations per window for an event to be summarized.")
	flags.IntVar(&minPerDay, "minPerDay", 5, "The minimum daily sample size for the recovery "+
		"trajectory curves.")
	flags.IntVar(&maWindow, "maWindow", 7, "The centered moving average window for the recovery "+
		"trajectory curves.")
	flags.IntVar(&maMinPoints, "maMinPoints", 3, "The minimum number of points for computing the "+
		"moving average at a position.")
	flags.StringVar(&physioMetrics, "physioMetrics", "", "A comma-separated list of physiological "+
		"metrics to analyze. Defaults to all metric columns.")
	flags.StringVar(&psychMetrics, "psychMetrics", "", "A comma-separated list of psychological "+
		"metrics to analyze. Defaults to all metric columns.")
	flags.StringVar(&pfilters, "pfilters", "id", "A list of pfilters to restrict analysis on "+
		"specific participants.")
	flags.StringVar(&buildFrom, "buildFrom", "", "Rebuild the day-level inputs from a raw study "+
		"export directory.")
	flags.BoolVar(&plots, "plots", false, "Render recovery trajectory, cohort mean, and drift "+
		"figures.")
	flags.StringVar(&name, "name", "hct1", "The name of the run. This is used to generate the "+
		"names of the output files.")
	flags.IntVar(&nrOfThreads, "nrOfThreads", 0, "The number of threads hctra uses.")
	// parse optional arguments
	parseFlags(flags, 5, hctraHelp)
	// parse required arguments
	physioFile = getFileName(os.Args[1], hctraHelp)
	psychFile = getFileName(os.Args[2], hctraHelp)
	eventsFile = getFileName(os.Args[3], hctraHelp)
	outputPath, _ = filepath.Abs(getFileName(os.Args[4], hctraHelp))
	outputPath = outputPath + string(filepath.Separator)
	fmt.Println("Output path: ", outputPath)
	// create output directory
	err := os.MkdirAll(filepath.Dir(outputPath), 0700)
	if err != nil {
		panic(err)
	}
	// build an output command line
	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " ", physioFile, " ", psychFile, " ", eventsFile, " ", outputPath)
	fmt.Fprint(&command, " --alpha ", alpha)
	fmt.Fprint(&command, " --minGroupSamples ", minGroupSamples)
	fmt.Fprint(&command, " --minCorrSamples ", minCorrSamples)
	fmt.Fprint(&command, " --preStart ", preStart)
	fmt.Fprint(&command, " --preEnd ", preEnd)
	fmt.Fprint(&command, " --baseStart ", baseStart)
	fmt.Fprint(&command, " --baseEnd ", baseEnd)
	fmt.Fprint(&command, " --pctDrop ", pctDrop)
	fmt.Fprint(&command, " --sdDrop ", sdDrop)
	fmt.Fprint(&command, " --minWindowSamples ", minWindowSamples)
	fmt.Fprint(&command, " --minPerDay ", minPerDay)
	fmt.Fprint(&command, " --maWindow ", maWindow)
	fmt.Fprint(&command, " --maMinPoints ", maMinPoints)
	if physioMetrics != "" {
		fmt.Fprint(&command, " --physioMetrics ", physioMetrics)
	}
	if psychMetrics != "" {
		fmt.Fprint(&command, " --psychMetrics ", psychMetrics)
	}
	fmt.Fprint(&command, " --pfilters ", pfilters)
	if buildFrom != "" {
		fmt.Fprint(&command, " --buildFrom ", buildFrom)
	}
	if plots {
		fmt.Fprint(&command, " --plots")
	}
	fmt.Fprint(&command, " --name ", name)
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nrOfThreads ", nrOfThreads)
	}
	// start execution
	log.Println(programMessage())
	log.Println("Executing command:\n", command.String())
	//1. Parse the day-level inputs, or rebuild them from the raw export
	var physio, psych *study.Dataset
	var events []study.Event
	if buildFrom != "" {
		physio, psych, events = app.BuildDayDatasets(buildFrom)
		app.SaveDayDataset(physio, outputPath+"physiological_dataset_day.csv")
		app.SaveDayDataset(psych, outputPath+"psych_behavioral_dataset_day.csv")
		app.SaveEvents(events, outputPath+"events_infections.csv")
	} else {
		physio = app.ParseDayDataset(physioFile, "physiological")
		psych = app.ParseDayDataset(psychFile, "psych_behavioral")
		events = app.ParseEvents(eventsFile)
	}
	if pfilters != "id" {
		filters := getParticipantFilters(pfilters)
		physio = study.ApplyParticipantFilters(physio, filters)
		psych = study.ApplyParticipantFilters(psych, filters)
	}
	physioM := getMetrics(physioMetrics, physio)
	psychM := getMetrics(psychMetrics, psych)
	cfg := compare.Config{Alpha: alpha, MinSamples: minGroupSamples}
	//2. Compare patients against caregivers on all metrics, one correction
	//family across both datasets
	roleBatch, err := compare.NewBatch(compare.Contrast{
		Attribute: study.RoleAttribute, LabelA: "Patients", LabelB: "Caregivers",
	}, cfg)
	if err != nil {
		log.Fatal(err)
	}
	roleBatch.Add(physio, physioM)
	roleBatch.Add(psych, psychM)
	roleResults := roleBatch.Correct()
	compare.WriteResults(roleResults, outputPath+name+".role_comparison.csv")
	fmt.Println("Compared ", len(roleResults), " metrics for Patients vs Caregivers.")
	//3. Compare male against female participants
	genderBatch, err := compare.NewBatch(compare.Contrast{
		Attribute: study.GenderAttribute, LabelA: "Male", LabelB: "Female",
	}, cfg)
	if err != nil {
		log.Fatal(err)
	}
	genderBatch.Add(physio, physioM)
	genderBatch.Add(psych, psychM)
	genderResults := genderBatch.Correct()
	compare.WriteResults(genderResults, outputPath+name+".gender_comparison.csv")
	fmt.Println("Compared ", len(genderResults), " metrics for Male vs Female.")
	//4. Screen same-day correlations between physiological and psychological
	//metrics for the patients
	correlations := compare.RunCorrelations(physio, psych, physioM, psychM,
		study.RoleAttribute, "Patients", minCorrSamples)
	compare.WriteCorrelations(correlations, outputPath+name+".correlations.csv")
	fmt.Println("Screened ", len(correlations), " physiological x psychological correlations.")
	//5. Early warning analysis around infection events
	wcfg := warning.Config{
		Windows:    warning.Windows{PreStart: preStart, PreEnd: preEnd, BaseStart: baseStart, BaseEnd: baseEnd},
		Thresholds: warning.Thresholds{PctDrop: pctDrop, SDDrop: sdDrop},
		MinSamples: minWindowSamples,
	}
	summaries, err := warning.SummarizeEvents(physio, events, physioM, wcfg)
	if err != nil {
		log.Fatal(err)
	}
	overview := warning.BuildOverview(summaries, physioM)
	warning.WriteEventSummaries(summaries, outputPath+name+".event_drift.csv")
	warning.WriteOverview(overview, outputPath+name+".early_warning.csv")
	fmt.Println("Summarized ", len(summaries), " event windows into ", len(overview), " metric overviews.")
	//6. Render figures
	if plots {
		for _, metric := range plotMetrics {
			if !physio.HasMetric(metric) {
				continue
			}
			plot.RecoveryPlot(physio, metric, minPerDay, maWindow, maMinPoints,
				outputPath+name+".recovery."+metric+".png")
			plot.DeltaHistogram(summaries, metric, outputPath+name+".drift."+metric+".png")
		}
		if physio.HasMetric("total_steps") {
			plot.ParticipantPlot(physio, "total_steps", 3, outputPath+name+".participants.total_steps.png")
			// the first summarized event is guaranteed to have drawable windows
			if s := warning.FirstSummaryFor(summaries, "total_steps"); s != nil {
				plot.EventTimeline(physio, "total_steps", study.Event{PID: s.PID, Day: s.EventDay},
					wcfg.Windows, outputPath+name+".event_timeline.total_steps.png")
			}
		}
		plot.GroupMeansBar(roleResults, outputPath+name+".role_means.png")
		fmt.Println("Rendered figures.")
	}
}
