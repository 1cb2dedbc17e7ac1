package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

/** @brief A unit of work run by the job system. */
type JobTask struct {
	/** @brief The work itself. A returned error routes to OnFailure. */
	OnStart func() error
	/** @brief Called when OnStart succeeded. */
	OnComplete func()
	/** @brief Called with the error of OnStart. */
	OnFailure func(err error)
	/** @brief Always called once the job ran, success or not. */
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()

	core.LogInfo("Job system started with %d workers.", numWorkers)
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				run(job)
			}
		}()
	}
}

func run(job JobTask) {
	if job.OnCompletionCallback != nil {
		defer job.OnCompletionCallback()
	}
	if job.OnStart == nil {
		return
	}
	if err := job.OnStart(); err != nil {
		core.LogError(err.Error())
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Submits the provided job to be queued for execution.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

/**
 * @brief Runs fn for every index in [0, n), split in contiguous chunks over
 * the workers, and returns once all of them ran. Must not be called from a
 * job, the caller would hold a worker while waiting on the others.
 */
func (js *JobSystem) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	chunks := js.numWorkers
	if chunks > n {
		chunks = n
	}
	if chunks == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	size := (n + chunks - 1) / chunks
	var done sync.WaitGroup
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		done.Add(1)
		first, last := start, end
		js.Submit(JobTask{
			OnStart: func() error {
				for i := first; i < last; i++ {
					fn(i)
				}
				return nil
			},
			OnCompletionCallback: done.Done,
		})
	}
	done.Wait()
}
