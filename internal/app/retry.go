package app

import (
	"math/rand"
	"strings"
	"time"
)

const (
	retryBaseDelay   = 500 * time.Millisecond
	retryMaxDelay    = 8 * time.Second
	retryJitterFrac  = 0.35
	retryWaitCeiling = 60 * time.Second
)

type retryOptions struct {
	MaxRetries int
	OnRetry    func(attempt int, wait time.Duration, err error)
	sleep      func(time.Duration) // 测试注入
}

// withExponentialBackoff 重复执行 fn 直到成功或尝试次数用完，
// 返回最后一次的错误。attempt 从 1 起。
func withExponentialBackoff(opts retryOptions, fn func(attempt int) error) error {
	attempts := opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		wait := retryWait(attempt, lastErr)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, wait, lastErr)
		}
		sleep(wait)
	}
	return lastErr
}

// retryWait 基础等待按 2 的幂增长；限流错误的等待不低于
// attempt² 秒。两者都带 ±35% 抖动，封顶 60 秒。
func retryWait(attempt int, err error) time.Duration {
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	wait := retryBaseDelay << shift
	if wait > retryMaxDelay {
		wait = retryMaxDelay
	}
	if isRateLimited(err) {
		floor := time.Duration(attempt*attempt) * time.Second
		if wait < floor {
			wait = floor
		}
	}
	wait = applyJitter(wait, retryJitterFrac)
	if wait > retryWaitCeiling {
		wait = retryWaitCeiling
	}
	return wait
}

func applyJitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	factor := 1 - frac + rand.Float64()*2*frac
	return time.Duration(float64(d) * factor)
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "rate limit")
}
