// Package crawler implements the crawl engine: frontier traversal, robots
// enforcement, domain confinement, link discovery and the page budget.
//
// # Architecture
//
// A Crawler is configured once with functional options and then runs jobs
// (model.Job). Every run owns a private traversal state holding the visited
// set, the budget counters and the fetched pages, so runs never interfere.
//
// For each frontier entry (url, depth) the crawler:
//  1. drops it if the budget is exhausted, the depth is too large or the URL
//     was seen before
//  2. marks it visited and asks the robots gate; a rejection ends here
//  3. fetches it with a bounded timeout
//  4. saves the page to the PageStore and counts it
//  5. sleeps the politeness delay
//  6. extracts same-domain links and enqueues them at depth+1
//
// # Traversal modes
//
// With one worker (the default) the traversal is depth-first with an
// explicit stack, and the fetch order is the pre-order of the link tree in
// document order. With more workers a FIFO frontier is shared by the
// workers, and politeness is a per-host rate limit.
//
// # Failures
//
// Robots rejections, fetch failures and save failures are per-URL: they are
// logged and show up only in Result.SkippedCount. A robots.txt that cannot
// be loaded makes every URL rejected. Only an invalid job is an error.
//
// # Usage
//
//	job, err := model.NewJob("https://example.com", 2, 200, 500*time.Millisecond)
//	if err != nil {
//		return err
//	}
//	c := crawler.New(crawler.WithStore(fileStore), crawler.WithLogger(logger))
//	result, err := c.Run(ctx, job)
package crawler
